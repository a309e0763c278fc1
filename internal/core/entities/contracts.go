package entities

import "github.com/JonMunkholm/maintrack/internal/core"

func init() {
	registerContractTemplates()
	registerSLAAgreements()
	registerReports()
}

func registerContractTemplates() {
	core.Register(core.EntityDefinition{
		Kind:   "contract-templates",
		Label:  "Contract template",
		Plural: "contract templates",
		Prefix: "TMP",
		FieldSpecs: []core.FieldSpec{
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "type", Type: core.FieldText},
			{Name: "content", Type: core.FieldText},
			{Name: "version", Type: core.FieldText},
			{Name: "isActive", Type: core.FieldBool},
		},
	})
}

func registerSLAAgreements() {
	core.Register(core.EntityDefinition{
		Kind:   "sla-agreements",
		Label:  "SLA agreement",
		Plural: "SLA agreements",
		Prefix: "SLA",
		FieldSpecs: []core.FieldSpec{
			{Name: "customerId", Type: core.FieldText, Required: true, Ref: "customers"},
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "responseTimeHours", Type: core.FieldNumeric, Required: true},
			{Name: "resolutionTimeHours", Type: core.FieldNumeric},
			{Name: "priority", Type: core.FieldEnum, EnumValues: []string{"low", "medium", "high", "critical"}, Normalizer: NormalizeEnumToken},
			{Name: "startDate", Type: core.FieldDate},
			{Name: "endDate", Type: core.FieldDate},
			{Name: "isActive", Type: core.FieldBool},
		},
		Check: dateOrder("startDate", "endDate"),
	})
}

func registerReports() {
	core.Register(core.EntityDefinition{
		Kind:   "reports",
		Label:  "Report",
		Plural: "reports",
		Prefix: "RPT",
		FieldSpecs: []core.FieldSpec{
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "type", Type: core.FieldEnum, EnumValues: []string{"maintenance", "financial", "utilization"}, Normalizer: NormalizeEnumToken},
			{Name: "period", Type: core.FieldText},
			{Name: "generatedBy", Type: core.FieldText, Ref: "users"},
			{Name: "generatedAt", Type: core.FieldDate},
		},
	})
}
