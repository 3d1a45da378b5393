package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcbaerp/internal/models"
	"pcbaerp/internal/store"
)

func seedWorkOrders(t *testing.T) *store.Memory[models.WorkOrder] {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory[models.WorkOrder]("work_orders")
	for _, wo := range []models.WorkOrder{
		{ID: "WO-24005", Customer: "VietMobile", PartNumber: "CABLE-C-TO-C", Quantity: 2000, Status: "released"},
		{ID: "WO-24001", Customer: "TechCore US", PartNumber: "PCBA-A12-PRO", Quantity: 500, Status: "in_production",
			Traveler: []string{"Baking", "Solder paste", "Pick & Place"}},
	} {
		require.NoError(t, m.Insert(ctx, wo))
	}
	return m
}

func ids(items []models.WorkOrder) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestMemory_InsertPrependsAndIsRetrievable(t *testing.T) {
	ctx := context.Background()
	m := seedWorkOrders(t)
	before := m.Len(ctx)

	require.NoError(t, m.Insert(ctx, models.WorkOrder{ID: "WO-2026-0001", Customer: "Acme", PartNumber: "PCBA-X", Quantity: 1}))

	assert.Equal(t, before+1, m.Len(ctx))
	got, err := m.Get(ctx, "WO-2026-0001")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Customer)

	all, err := m.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"WO-2026-0001", "WO-24001", "WO-24005"}, ids(all))
}

func TestMemory_InsertRejectsDuplicateAndEmptyID(t *testing.T) {
	ctx := context.Background()
	m := seedWorkOrders(t)

	err := m.Insert(ctx, models.WorkOrder{ID: "WO-24001"})
	assert.ErrorIs(t, err, store.ErrDuplicateID)
	err = m.Insert(ctx, models.WorkOrder{})
	assert.ErrorIs(t, err, store.ErrEmptyID)
	assert.Equal(t, 2, m.Len(ctx))
}

func TestMemory_UpdateReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	m := seedWorkOrders(t)

	err := m.Update(ctx, "WO-24001", models.WorkOrder{ID: "WO-24001", Customer: "TechCore EU", PartNumber: "PCBA-B1", Quantity: 10, Status: "completed"})
	require.NoError(t, err)

	got, err := m.Get(ctx, "WO-24001")
	require.NoError(t, err)
	assert.Equal(t, "TechCore EU", got.Customer)
	assert.Equal(t, "PCBA-B1", got.PartNumber)
	assert.Empty(t, got.Traveler, "wholesale replace drops fields absent from the new record")
	assert.Equal(t, 2, m.Len(ctx))

	all, _ := m.List(ctx, "")
	assert.Equal(t, []string{"WO-24001", "WO-24005"}, ids(all), "position is kept")
}

func TestMemory_UpdateRename(t *testing.T) {
	ctx := context.Background()
	m := seedWorkOrders(t)

	err := m.Update(ctx, "WO-24001", models.WorkOrder{ID: "WO-24005"})
	assert.ErrorIs(t, err, store.ErrDuplicateID)

	var changes []store.Change
	m.Observe(func(_ context.Context, c store.Change) { changes = append(changes, c) })
	require.NoError(t, m.Update(ctx, "WO-24001", models.WorkOrder{ID: "WO-24001-R", Customer: "TechCore US"}))
	_, err = m.Get(ctx, "WO-24001")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.Len(t, changes, 1)
	assert.Equal(t, "WO-24001-R", changes[0].ID)
	assert.Equal(t, "WO-24001", changes[0].PrevID)
}

func TestMemory_NotFound(t *testing.T) {
	ctx := context.Background()
	m := seedWorkOrders(t)

	assert.ErrorIs(t, m.Update(ctx, "WO-404", models.WorkOrder{ID: "WO-404"}), store.ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "WO-404"), store.ErrNotFound)
	_, err := m.Get(ctx, "WO-404")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 2, m.Len(ctx))
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := seedWorkOrders(t)

	require.NoError(t, m.Delete(ctx, "WO-24005"))
	assert.Equal(t, 1, m.Len(ctx))
	_, err := m.Get(ctx, "WO-24005")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemory_ListFilter(t *testing.T) {
	ctx := context.Background()
	m := seedWorkOrders(t)

	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"WO-24001", "WO-24005"}},
		{"techcore", []string{"WO-24001"}},
		{"CABLE", []string{"WO-24005"}},
		{"wo-240", []string{"WO-24001", "WO-24005"}},
		{"  pcba-a12  ", []string{"WO-24001"}},
		{"nothing-matches", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got, err := m.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestMemory_ReturnedRecordsDoNotAlias(t *testing.T) {
	ctx := context.Background()
	m := seedWorkOrders(t)

	got, err := m.Get(ctx, "WO-24001")
	require.NoError(t, err)
	got.Traveler[0] = "mutated"

	again, _ := m.Get(ctx, "WO-24001")
	assert.Equal(t, "Baking", again.Traveler[0])
}

func TestMemory_ObserversSeeEveryMutation(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory[models.WorkOrder]("work_orders")
	var actions []store.Action
	m.Observe(func(_ context.Context, c store.Change) {
		assert.Equal(t, "work_orders", c.Collection)
		actions = append(actions, c.Action)
	})

	require.NoError(t, m.Insert(ctx, models.WorkOrder{ID: "A"}))
	require.NoError(t, m.Update(ctx, "A", models.WorkOrder{ID: "A", Customer: "x"}))
	require.NoError(t, m.Delete(ctx, "A"))
	require.NoError(t, m.Clear(ctx))
	_ = m.Delete(ctx, "missing")

	assert.Equal(t, []store.Action{store.ActionCreate, store.ActionUpdate, store.ActionDelete, store.ActionClear}, actions)
}

func TestMemory_Restore(t *testing.T) {
	m := store.NewMemory[models.WorkOrder]("work_orders")
	err := m.Restore([]models.WorkOrder{{ID: "A"}, {ID: "A"}})
	assert.ErrorIs(t, err, store.ErrDuplicateID)

	require.NoError(t, m.Restore([]models.WorkOrder{{ID: "B"}, {ID: "A"}}))
	assert.Equal(t, []string{"B", "A"}, ids(m.Snapshot()))
}

func TestMatches(t *testing.T) {
	assert.True(t, store.Matches([]string{"LOT2403-01"}, ""))
	assert.True(t, store.Matches([]string{"x", "LOT2403-01"}, "lot2403"))
	assert.False(t, store.Matches([]string{"LOT2403-01"}, "lot2404"))
	assert.False(t, store.Matches(nil, "a"))
}
