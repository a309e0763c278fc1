package entities

import "github.com/JonMunkholm/maintrack/internal/core"

func init() {
	registerAssets()
	registerLeases()
}

func registerAssets() {
	core.Register(core.EntityDefinition{
		Kind:   "assets",
		Label:  "Asset",
		Plural: "assets",
		Prefix: "AST",
		FieldSpecs: []core.FieldSpec{
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "serialNumber", Type: core.FieldText},
			{Name: "model", Type: core.FieldText},
			{Name: "manufacturer", Type: core.FieldText},
			{Name: "category", Type: core.FieldText},
			{Name: "status", Type: core.FieldEnum, EnumValues: []string{"available", "leased", "maintenance", "retired"}, Normalizer: NormalizeEnumToken},
			{Name: "purchaseDate", Type: core.FieldDate},
			{Name: "purchasePrice", Type: core.FieldNumeric},
			{Name: "location", Type: core.FieldText},
			{Name: "customerId", Type: core.FieldText, Ref: "customers"},
		},
	})
}

func registerLeases() {
	core.Register(core.EntityDefinition{
		Kind:   "leases",
		Label:  "Lease",
		Plural: "leases",
		Prefix: "LSE",
		FieldSpecs: []core.FieldSpec{
			{Name: "customerId", Type: core.FieldText, Required: true, Ref: "customers"},
			{Name: "assetId", Type: core.FieldText, Required: true, Ref: "assets"},
			{Name: "startDate", Type: core.FieldDate, Required: true},
			{Name: "endDate", Type: core.FieldDate},
			{Name: "monthlyRate", Type: core.FieldNumeric},
			{Name: "status", Type: core.FieldEnum, EnumValues: []string{"active", "expired", "terminated"}, Normalizer: NormalizeEnumToken},
		},
		Check: dateOrder("startDate", "endDate"),
	})
}
