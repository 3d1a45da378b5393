package models

import "github.com/shopspring/decimal"

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta contains list metadata.
type Meta struct {
	Total  int    `json:"total,omitempty"`
	Search string `json:"search,omitempty"`
}

// Department names the factory department an employee belongs to.
type Department string

const (
	DeptAdmin      Department = "admin"
	DeptSalePlan   Department = "sale_plan"
	DeptPurchase   Department = "purchase"
	DeptIQC        Department = "iqc"
	DeptWarehouse  Department = "warehouse"
	DeptProduction Department = "production"
	DeptQC         Department = "qc"
	DeptTest       Department = "test"
	DeptShipping   Department = "shipping"
	DeptIT         Department = "it"
	DeptAccounting Department = "accounting"
	DeptHR         Department = "hr"
	DeptXNK        Department = "xnk"
)

// Work order statuses.
const (
	WOCreated      = "created"
	WOReleased     = "released"
	WOInProduction = "in_production"
	WOCompleted    = "completed"
	WOClosed       = "closed"
)

type WorkOrder struct {
	ID         string   `json:"id"`
	Customer   string   `json:"customer"`
	PartNumber string   `json:"part_number"`
	Quantity   int      `json:"quantity"`
	Status     string   `json:"status"`
	CreatedAt  string   `json:"created_at"`
	DueDate    string   `json:"due_date"`
	Traveler   []string `json:"traveler"`
}

func (wo WorkOrder) Key() string { return wo.ID }

func (wo WorkOrder) SearchFields() []string {
	return []string{wo.ID, wo.Customer, wo.PartNumber}
}

type POItem struct {
	PN          string          `json:"pn"`
	Description string          `json:"description"`
	Qty         int             `json:"qty"`
	Price       decimal.Decimal `json:"price"`
}

type PurchaseOrder struct {
	ID           string          `json:"id"`
	Vendor       string          `json:"vendor"`
	OrderDate    string          `json:"order_date"`
	DeliveryDate string          `json:"delivery_date"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Currency     string          `json:"currency"`
	Status       string          `json:"status"`
	Items        []POItem        `json:"items"`
}

func (po PurchaseOrder) Key() string { return po.ID }

func (po PurchaseOrder) SearchFields() []string {
	fields := []string{po.ID, po.Vendor}
	for _, it := range po.Items {
		fields = append(fields, it.PN, it.Description)
	}
	return fields
}

// ItemsTotal sums qty*price over the order lines.
func (po PurchaseOrder) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range po.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total
}

type Material struct {
	ID         string `json:"id"`
	PN         string `json:"pn"`
	LotNumber  string `json:"lot_number"`
	Quantity   int    `json:"quantity"`
	Location   string `json:"location"`
	ExpiryDate string `json:"expiry_date"`
	MSLLevel   string `json:"msl_level"`
	Supplier   string `json:"supplier"`
	Status     string `json:"status"`
}

func (m Material) Key() string { return m.ID }

func (m Material) SearchFields() []string {
	return []string{m.PN, m.LotNumber, m.Supplier, m.Location}
}

type ProductionLog struct {
	ID          string `json:"id"`
	SN          string `json:"sn"`
	WOID        string `json:"wo_id"`
	Station     string `json:"station"`
	Operator    string `json:"operator"`
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status"`
	MachineID   string `json:"machine_id,omitempty"`
	ProgramName string `json:"program_name,omitempty"`
}

func (l ProductionLog) Key() string { return l.ID }

func (l ProductionLog) SearchFields() []string {
	return []string{l.SN, l.WOID, l.Station}
}

type DefectRecord struct {
	ID         string `json:"id"`
	SN         string `json:"sn"`
	DefectCode string `json:"defect_code"`
	Location   string `json:"location"`
	Severity   string `json:"severity"`
	MRBAction  string `json:"mrb_action"`
	Inspector  string `json:"inspector"`
	Timestamp  string `json:"timestamp"`
}

func (d DefectRecord) Key() string { return d.ID }

func (d DefectRecord) SearchFields() []string {
	return []string{d.ID, d.SN, d.DefectCode, d.Location}
}

type Transaction struct {
	ID          string          `json:"id"`
	RefID       string          `json:"ref_id"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
}

func (t Transaction) Key() string { return t.ID }

func (t Transaction) SearchFields() []string {
	return []string{t.ID, t.RefID, t.Description}
}

type ShippingRecord struct {
	ID             string  `json:"id"`
	WOID           string  `json:"wo_id"`
	Customer       string  `json:"customer"`
	TrackingNumber string  `json:"tracking_number"`
	Carrier        string  `json:"carrier"`
	Weight         float64 `json:"weight"`
	Dimensions     string  `json:"dimensions"`
	Status         string  `json:"status"`
	ShipDate       string  `json:"ship_date"`
}

func (s ShippingRecord) Key() string { return s.ID }

func (s ShippingRecord) SearchFields() []string {
	return []string{s.ID, s.WOID, s.Customer, s.TrackingNumber, s.Carrier}
}

type CustomsRecord struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	HSCode          string          `json:"hs_code"`
	Origin          string          `json:"origin"`
	Quantity        int             `json:"quantity"`
	ValueUSD        decimal.Decimal `json:"value_usd"`
	TaxRate         float64         `json:"tax_rate"`
	Status          string          `json:"status"`
	DeclarationDate string          `json:"declaration_date"`
}

func (c CustomsRecord) Key() string { return c.ID }

func (c CustomsRecord) SearchFields() []string {
	return []string{c.ID, c.HSCode, c.Origin}
}

// Duty is the import/export duty owed: value * rate / 100.
func (c CustomsRecord) Duty() decimal.Decimal {
	return c.ValueUSD.Mul(decimal.NewFromFloat(c.TaxRate)).Div(decimal.NewFromInt(100)).Round(2)
}

type Employee struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Department     Department `json:"department"`
	Position       string     `json:"position"`
	Certifications []string   `json:"certifications"`
	Status         string     `json:"status"`
	JoinDate       string     `json:"join_date"`
}

func (e Employee) Key() string { return e.ID }

func (e Employee) SearchFields() []string {
	return append([]string{e.ID, e.Name, e.Position}, e.Certifications...)
}

type SystemLog struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Action    string `json:"action"`
	Module    string `json:"module"`
	Timestamp string `json:"timestamp"`
	Severity  string `json:"severity"`
}

func (l SystemLog) Key() string { return l.ID }

func (l SystemLog) SearchFields() []string {
	return []string{l.User, l.Action, l.Module}
}

// TraceStep is one station visit in a serial number's history.
type TraceStep struct {
	Step     string `json:"step"`
	Operator string `json:"op"`
	Date     string `json:"date"`
	Result   string `json:"result"`
	Details  string `json:"details,omitempty"`
}

// TraceResult is the full production history of a serial number.
type TraceResult struct {
	SN         string         `json:"sn"`
	WorkOrder  string         `json:"wo"`
	Customer   string         `json:"customer"`
	PartNumber string         `json:"pn"`
	Shipment   string         `json:"shipment,omitempty"`
	History    []TraceStep    `json:"history"`
	Defects    []DefectRecord `json:"defects"`
}
