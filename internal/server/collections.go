package server

import (
	"context"
	"fmt"

	"pcbaerp/internal/models"
	"pcbaerp/internal/seed"
	"pcbaerp/internal/store"
	"pcbaerp/internal/store/sqlite"
)

// Collection names, also used as snapshot buckets and metric labels.
const (
	CollWorkOrders     = "work_orders"
	CollPurchaseOrders = "purchase_orders"
	CollMaterials      = "materials"
	CollProductionLogs = "production_logs"
	CollDefects        = "defects"
	CollTransactions   = "transactions"
	CollShipments      = "shipments"
	CollDeclarations   = "declarations"
	CollEmployees      = "employees"
	CollSystemLogs     = "system_logs"
)

// Collections holds one repository per entity type.
type Collections struct {
	WorkOrders     store.Repository[models.WorkOrder]
	PurchaseOrders store.Repository[models.PurchaseOrder]
	Materials      store.Repository[models.Material]
	ProductionLogs store.Repository[models.ProductionLog]
	Defects        store.Repository[models.DefectRecord]
	Transactions   store.Repository[models.Transaction]
	Shipments      store.Repository[models.ShippingRecord]
	Declarations   store.Repository[models.CustomsRecord]
	Employees      store.Repository[models.Employee]
	SystemLogs     store.Repository[models.SystemLog]

	tracked []tracked
}

type tracked struct {
	name    string
	observe func(store.Observer)
	count   func(context.Context) int
	keys    func() []string
}

// OpenOptions controls how collections are created.
type OpenOptions struct {
	// DB, when set, persists every collection to the snapshot database.
	DB *sqlite.DB
	// Seed fills empty collections with the sample factory data.
	Seed bool
}

// OpenCollections creates every collection. Seeding happens here, before any
// observer is attached, so sample data raises no change events.
func OpenCollections(ctx context.Context, opts OpenOptions) (*Collections, error) {
	c := &Collections{}
	var err error
	if c.WorkOrders, err = open(ctx, c, opts, CollWorkOrders, seed.WorkOrders); err != nil {
		return nil, err
	}
	if c.PurchaseOrders, err = open(ctx, c, opts, CollPurchaseOrders, seed.PurchaseOrders); err != nil {
		return nil, err
	}
	if c.Materials, err = open(ctx, c, opts, CollMaterials, seed.Materials); err != nil {
		return nil, err
	}
	if c.ProductionLogs, err = open(ctx, c, opts, CollProductionLogs, seed.ProductionLogs); err != nil {
		return nil, err
	}
	if c.Defects, err = open(ctx, c, opts, CollDefects, seed.Defects); err != nil {
		return nil, err
	}
	if c.Transactions, err = open(ctx, c, opts, CollTransactions, seed.Transactions); err != nil {
		return nil, err
	}
	if c.Shipments, err = open(ctx, c, opts, CollShipments, seed.Shipments); err != nil {
		return nil, err
	}
	if c.Declarations, err = open(ctx, c, opts, CollDeclarations, seed.Declarations); err != nil {
		return nil, err
	}
	if c.Employees, err = open(ctx, c, opts, CollEmployees, seed.Employees); err != nil {
		return nil, err
	}
	if c.SystemLogs, err = open(ctx, c, opts, CollSystemLogs, seed.SystemLogs); err != nil {
		return nil, err
	}
	return c, nil
}

func open[T store.Entity](ctx context.Context, c *Collections, opts OpenOptions, name string, sample func() []T) (store.Repository[T], error) {
	mem := store.NewMemory[T](name)
	var repo store.Repository[T] = mem
	if opts.DB != nil {
		col, err := sqlite.Bind(ctx, opts.DB, mem)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
		repo = col
	}
	if opts.Seed {
		if _, err := seed.Fill(ctx, repo, sample()); err != nil {
			return nil, fmt.Errorf("seed %s: %w", name, err)
		}
	}
	c.tracked = append(c.tracked, tracked{
		name:    name,
		observe: mem.Observe,
		count:   mem.Len,
		keys: func() []string {
			items := mem.Snapshot()
			out := make([]string, len(items))
			for i, it := range items {
				out[i] = it.Key()
			}
			return out
		},
	})
	return repo, nil
}

// Observe registers fn on every collection.
func (c *Collections) Observe(fn store.Observer) {
	for _, t := range c.tracked {
		t.observe(fn)
	}
}

// Counts returns the record count per collection.
func (c *Collections) Counts(ctx context.Context) map[string]int {
	out := make(map[string]int, len(c.tracked))
	for _, t := range c.tracked {
		out[t.name] = t.count(ctx)
	}
	return out
}

// Count returns the size of the named collection, or 0 when unknown.
func (c *Collections) Count(ctx context.Context, name string) int {
	for _, t := range c.tracked {
		if t.name == name {
			return t.count(ctx)
		}
	}
	return 0
}

// Keys calls fn with every stored record id.
func (c *Collections) Keys(fn func(id string)) {
	for _, t := range c.tracked {
		for _, id := range t.keys() {
			fn(id)
		}
	}
}
