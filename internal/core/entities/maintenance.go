package entities

import "github.com/JonMunkholm/maintrack/internal/core"

func init() {
	registerMaintenanceSchedules()
	registerWorkOrders()
}

func registerMaintenanceSchedules() {
	core.Register(core.EntityDefinition{
		Kind:   "maintenance-schedules",
		Label:  "Maintenance schedule",
		Plural: "maintenance schedules",
		Prefix: "MNT",
		FieldSpecs: []core.FieldSpec{
			{Name: "assetId", Type: core.FieldText, Required: true, Ref: "assets"},
			{Name: "title", Type: core.FieldText, Required: true},
			{Name: "frequency", Type: core.FieldEnum, EnumValues: []string{"daily", "weekly", "monthly", "quarterly", "yearly"}, Normalizer: NormalizeEnumToken},
			{Name: "nextDueDate", Type: core.FieldDate},
			{Name: "lastPerformed", Type: core.FieldDate},
			{Name: "assignedTo", Type: core.FieldText},
		},
	})
}

func registerWorkOrders() {
	core.Register(core.EntityDefinition{
		Kind:   "work-orders",
		Label:  "Work order",
		Plural: "work orders",
		Prefix: "WO",
		FieldSpecs: []core.FieldSpec{
			{Name: "title", Type: core.FieldText, Required: true},
			{Name: "assetId", Type: core.FieldText, Required: true, Ref: "assets"},
			{Name: "customerId", Type: core.FieldText, Ref: "customers"},
			{Name: "priority", Type: core.FieldEnum, EnumValues: []string{"low", "medium", "high", "critical"}, Normalizer: NormalizeEnumToken},
			{Name: "status", Type: core.FieldEnum, EnumValues: []string{"open", "in_progress", "completed", "cancelled"}, Normalizer: NormalizeEnumToken},
			{Name: "scheduledDate", Type: core.FieldDate},
			{Name: "completedDate", Type: core.FieldDate},
			{Name: "assignedTo", Type: core.FieldText},
			{Name: "estimatedCost", Type: core.FieldNumeric},
		},
	})
}
