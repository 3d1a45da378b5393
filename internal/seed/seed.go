// Package seed holds the sample factory data loaded into empty collections
// at start-up.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pcbaerp/internal/models"
	"pcbaerp/internal/store"
)

// Fill inserts items into repo when it is empty, keeping items' order as the
// stored order. It reports whether anything was inserted.
func Fill[T store.Entity](ctx context.Context, repo store.Repository[T], items []T) (bool, error) {
	if repo.Len(ctx) > 0 {
		return false, nil
	}
	for i := len(items) - 1; i >= 0; i-- {
		if err := repo.Insert(ctx, items[i]); err != nil {
			return false, fmt.Errorf("seed %s: %w", items[i].Key(), err)
		}
	}
	return true, nil
}

func WorkOrders() []models.WorkOrder {
	return []models.WorkOrder{
		{ID: "WO-24001", Customer: "TechCore US", PartNumber: "PCBA-A12-PRO", Quantity: 500, Status: models.WOInProduction,
			CreatedAt: "2024-03-01", DueDate: "2024-03-25",
			Traveler: []string{"Baking", "Solder Paste Print", "Pick & Place", "Reflow Oven", "AOI"}},
		{ID: "WO-24005", Customer: "VietMobile", PartNumber: "CABLE-C-TO-C", Quantity: 2000, Status: models.WOReleased,
			CreatedAt: "2024-03-05", DueDate: "2024-04-10",
			Traveler: []string{"Wire Cutting", "Stripping", "Soldering", "Overmolding", "Test"}},
	}
}

func PurchaseOrders() []models.PurchaseOrder {
	return []models.PurchaseOrder{
		{ID: "PO-24001", Vendor: "DigiKey US", OrderDate: "2024-03-10", DeliveryDate: "2024-03-25",
			TotalAmount: decimal.NewFromInt(10000), Currency: "USD", Status: "sent",
			Items: []models.POItem{{PN: "MCU-STM32F4", Description: "Microcontroller", Qty: 500, Price: decimal.NewFromInt(20)}}},
		{ID: "PO-24015", Vendor: "Future Electronics", OrderDate: "2024-03-12", DeliveryDate: "2024-04-05",
			TotalAmount: decimal.NewFromInt(2000), Currency: "USD", Status: "draft",
			Items: []models.POItem{{PN: "CAP-10UF-0603", Description: "Capacitor", Qty: 20000, Price: decimal.RequireFromString("0.1")}}},
	}
}

func Materials() []models.Material {
	return []models.Material{
		{ID: "MAT-24001", PN: "CAP-10UF-0603", LotNumber: "LOT2403-01", Quantity: 25000, Location: "A1-R02",
			MSLLevel: "MSL 3", ExpiryDate: "2025-12", Supplier: "DigiKey", Status: "available"},
		{ID: "MAT-24002", PN: "MCU-STM32F4", LotNumber: "LOT2403-12", Quantity: 540, Location: "B2-S01",
			MSLLevel: "MSL 1", ExpiryDate: "2026-06", Supplier: "Future Electronics", Status: "reserved"},
		{ID: "MAT-24003", PN: "RES-10K-0402", LotNumber: "LOT2402-44", Quantity: 100000, Location: "A1-R15",
			MSLLevel: "MSL 1", ExpiryDate: "2025-08", Supplier: "Local VN", Status: "available"},
	}
}

// ProductionLogs covers the full route of SN2401-001 so traceability has a
// history to show, plus the second unit's first stations.
func ProductionLogs() []models.ProductionLog {
	return []models.ProductionLog{
		{ID: "PL-24011", SN: "SN2401-001", WOID: "WO-24001", Station: "Test FCT", Operator: "Test Station 1", Timestamp: "2024-03-21 09:00", Status: "pass"},
		{ID: "PL-24010", SN: "SN2401-001", WOID: "WO-24001", Station: "Visual QC", Operator: "QC 02", Timestamp: "2024-03-20 16:15", Status: "pass"},
		{ID: "PL-24009", SN: "SN2401-001", WOID: "WO-24001", Station: "Rework", Operator: "Repair X", Timestamp: "2024-03-20 15:00", Status: "pass"},
		{ID: "PL-24008", SN: "SN2401-001", WOID: "WO-24001", Station: "AOI", Operator: "AOI Station", Timestamp: "2024-03-20 14:20", Status: "fail", MachineID: "M-AOI-01"},
		{ID: "PL-24007", SN: "SN2401-001", WOID: "WO-24001", Station: "Reflow Oven", Operator: "Oven 1", Timestamp: "2024-03-20 13:00", Status: "pass", MachineID: "M-OVN-01"},
		{ID: "PL-24002", SN: "SN2401-002", WOID: "WO-24001", Station: "Pick & Place", Operator: "Nguyen Van A", Timestamp: "2024-03-20 10:18", Status: "pass", MachineID: "M-PNP-01"},
		{ID: "PL-24006", SN: "SN2401-001", WOID: "WO-24001", Station: "Pick & Place", Operator: "Nguyen Van A", Timestamp: "2024-03-20 10:16", Status: "pass", MachineID: "M-PNP-01"},
		{ID: "PL-24001", SN: "SN2401-001", WOID: "WO-24001", Station: "SMT Printer", Operator: "Nguyen Van A", Timestamp: "2024-03-20 10:15", Status: "pass", ProgramName: "PROG-PCBA-V1"},
		{ID: "PL-24003", SN: "SN2401-002", WOID: "WO-24001", Station: "SMT Printer", Operator: "Nguyen Van A", Timestamp: "2024-03-20 10:14", Status: "pass", ProgramName: "PROG-PCBA-V1"},
	}
}

func Defects() []models.DefectRecord {
	return []models.DefectRecord{
		{ID: "D-001", SN: "SN29482", DefectCode: "SH-01", Location: "C21", Severity: "major", MRBAction: "rework", Inspector: "QC-01", Timestamp: "2024-03-20 12:45"},
		{ID: "D-002", SN: "SN29485", DefectCode: "MC-04", Location: "R4", Severity: "critical", MRBAction: "scrap", Inspector: "QC-02", Timestamp: "2024-03-20 12:48"},
		{ID: "D-003", SN: "SN2401-001", DefectCode: "SH-01", Location: "C12", Severity: "major", MRBAction: "rework", Inspector: "AOI Station", Timestamp: "2024-03-20 14:20"},
	}
}

func Transactions() []models.Transaction {
	return []models.Transaction{
		{ID: "T-24-001", RefID: "INV-422", Type: "income", Category: "sales", Amount: decimal.NewFromInt(14500), Date: "2024-03-14",
			Description: "Payment from TechCore US - WO-24001"},
		{ID: "T-24-002", RefID: "PO-24001", Type: "expense", Category: "material", Amount: decimal.NewFromInt(8200), Date: "2024-03-12",
			Description: "Component invoice from DigiKey"},
		{ID: "T-24-003", RefID: "UTIL-03", Type: "expense", Category: "service", Amount: decimal.NewFromInt(1450), Date: "2024-03-10",
			Description: "FAB-9 factory electricity, February"},
	}
}

func Shipments() []models.ShippingRecord {
	return []models.ShippingRecord{
		{ID: "SHIP-001", WOID: "WO-24001", Customer: "TechCore US", TrackingNumber: "UPS-1Z999", Carrier: "UPS",
			Weight: 45.2, Dimensions: "40x40x30cm", Status: "shipped", ShipDate: "2024-03-20"},
		{ID: "SHIP-002", WOID: "WO-24005", Customer: "VietMobile", TrackingNumber: "PENDING", Carrier: "DHL",
			Weight: 12.0, Dimensions: "20x20x20cm", Status: "pending", ShipDate: "2024-03-25"},
	}
}

func Declarations() []models.CustomsRecord {
	return []models.CustomsRecord{
		{ID: "TK-24001", Type: "export", HSCode: "8534.00.90", Origin: "Vietnam", Quantity: 500,
			ValueUSD: decimal.NewFromInt(12400), TaxRate: 0, Status: "cleared", DeclarationDate: "2024-03-20"},
		{ID: "TK-24002", Type: "import", HSCode: "8542.31.00", Origin: "USA", Quantity: 1000,
			ValueUSD: decimal.NewFromInt(45000), TaxRate: 5, Status: "processing", DeclarationDate: "2024-03-22"},
	}
}

func Employees() []models.Employee {
	return []models.Employee{
		{ID: "FE-001", Name: "Nguyen Van A", Department: models.DeptProduction, Position: "SMT Operator",
			Certifications: []string{"IPC-A-610", "ESD Safety"}, Status: "active", JoinDate: "2022-01-15"},
		{ID: "FE-042", Name: "Tran Thi B", Department: models.DeptQC, Position: "QC Inspector",
			Certifications: []string{"ISO 9001", "IPC-A-600"}, Status: "active", JoinDate: "2023-05-10"},
	}
}

func SystemLogs() []models.SystemLog {
	return []models.SystemLog{
		{ID: "LOG-0001", User: "Admin", Action: "User Login", Module: "Auth", Timestamp: "2024-03-20 14:20", Severity: "info"},
		{ID: "LOG-0002", User: "MES-Sync", Action: "Data Update", Module: "Production", Timestamp: "2024-03-20 14:18", Severity: "info"},
		{ID: "LOG-0003", User: "DB-Admin", Action: "Table Drop Attempt", Module: "Database", Timestamp: "2024-03-20 14:15", Severity: "warning"},
	}
}
