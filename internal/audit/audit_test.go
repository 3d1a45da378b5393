package audit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"pcbaerp/internal/models"
	"pcbaerp/internal/store"
)

func TestObserveChange_WritesSystemLog(t *testing.T) {
	ctx := WithOperator(context.Background(), "planner01")
	logs := store.NewMemory[models.SystemLog]("system_logs")
	l := NewLogger(logs, nil)
	l.now = func() time.Time { return time.Date(2026, 3, 20, 14, 20, 0, 0, time.UTC) }
	l.Modules["work_orders"] = "Planning"

	wos := store.NewMemory[models.WorkOrder]("work_orders")
	wos.Observe(l.ObserveChange)
	logs.Observe(l.ObserveChange)

	if err := wos.Insert(ctx, models.WorkOrder{ID: "WO-1"}); err != nil {
		t.Fatal(err)
	}
	if err := wos.Delete(ctx, "WO-1"); err != nil {
		t.Fatal(err)
	}

	entries, _ := logs.List(ctx, "")
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(entries))
	}
	del, create := entries[0], entries[1]
	if create.Action != "CREATE WO-1" || create.Module != "Planning" || create.User != "planner01" || create.Severity != "info" {
		t.Errorf("Unexpected create entry: %+v", create)
	}
	if create.Timestamp != "2026-03-20 14:20" {
		t.Errorf("Unexpected timestamp: %s", create.Timestamp)
	}
	if del.Action != "DELETE WO-1" || del.Severity != "warning" {
		t.Errorf("Unexpected delete entry: %+v", del)
	}
}

func TestObserveChange_RenameAndClear(t *testing.T) {
	ctx := context.Background()
	logs := store.NewMemory[models.SystemLog]("system_logs")
	l := NewLogger(logs, nil)

	l.ObserveChange(ctx, store.Change{Collection: "defects", Action: store.ActionUpdate, ID: "D-9", PrevID: "D-1"})
	l.ObserveChange(ctx, store.Change{Collection: "defects", Action: store.ActionClear})
	l.ObserveChange(ctx, store.Change{Collection: "system_logs", Action: store.ActionClear})

	entries, _ := logs.List(ctx, "")
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[1].Action != "UPDATE D-9 (was D-1)" || entries[1].User != "system" {
		t.Errorf("Unexpected rename entry: %+v", entries[1])
	}
	if entries[0].Action != "CLEAR all records" {
		t.Errorf("Unexpected clear entry: %+v", entries[0])
	}
}

func TestOperatorFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if got := OperatorFromRequest(r); got != "" {
		t.Errorf("Expected empty operator, got %q", got)
	}
	r.Header.Set(OperatorHeader, "  qc-02 ")
	if got := OperatorFromRequest(r); got != "qc-02" {
		t.Errorf("Expected qc-02, got %q", got)
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:51234"
	if got := GetClientIP(r); got != "10.0.0.5" {
		t.Errorf("Expected 10.0.0.5, got %s", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := GetClientIP(r); got != "203.0.113.9" {
		t.Errorf("Expected 203.0.113.9, got %s", got)
	}
}
