package validation

// Common enum values shared by the module schemas.
var (
	ValidWOStatuses       = []string{"created", "released", "in_production", "completed", "closed"}
	ValidPOStatuses       = []string{"draft", "sent", "received", "cancelled"}
	ValidCurrencies       = []string{"USD", "VND"}
	ValidMaterialStatuses = []string{"available", "low", "expired", "reserved"}
	ValidMSLLevels        = []string{"MSL 1", "MSL 2", "MSL 2a", "MSL 3", "MSL 4", "MSL 5", "MSL 5a", "MSL 6"}
	ValidLogStatuses      = []string{"pass", "fail"}
	ValidDefectSeverities = []string{"critical", "major", "minor"}
	ValidMRBActions       = []string{"rework", "rtv", "scrap", "use_as_is"}
	ValidTxTypes          = []string{"income", "expense"}
	ValidTxCategories     = []string{"material", "service", "salary", "sales"}
	ValidShipmentStatuses = []string{"pending", "shipped", "delivered"}
	ValidCustomsTypes     = []string{"import", "export"}
	ValidCustomsStatuses  = []string{"processing", "cleared", "rejected"}
	ValidEmployeeStatuses = []string{"active", "on_leave", "terminated"}
	ValidSystemSeverities = []string{"info", "warning", "error"}
	ValidDepartments      = []string{"admin", "sale_plan", "purchase", "iqc", "warehouse", "production", "qc", "test", "shipping", "it", "accounting", "hr", "xnk"}
)

// Status state machines. Terminal states map to an empty slice.
var (
	WOTransitions = map[string][]string{
		"created":       {"released", "closed"},
		"released":      {"in_production", "closed"},
		"in_production": {"completed"},
		"completed":     {"closed"},
		"closed":        {},
	}
	POTransitions = map[string][]string{
		"draft":     {"sent", "cancelled"},
		"sent":      {"received", "cancelled"},
		"received":  {},
		"cancelled": {},
	}
	ShipmentTransitions = map[string][]string{
		"pending":   {"shipped"},
		"shipped":   {"delivered"},
		"delivered": {},
	}
	CustomsTransitions = map[string][]string{
		"processing": {"cleared", "rejected"},
		"cleared":    {},
		"rejected":   {},
	}
	EmployeeTransitions = map[string][]string{
		"active":     {"on_leave", "terminated"},
		"on_leave":   {"active", "terminated"},
		"terminated": {},
	}
)
