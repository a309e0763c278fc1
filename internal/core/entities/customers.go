package entities

import "github.com/JonMunkholm/maintrack/internal/core"

func init() {
	registerCustomers()
	registerUsers()
}

func registerCustomers() {
	core.Register(core.EntityDefinition{
		Kind:   "customers",
		Label:  "Customer",
		Plural: "customers",
		Prefix: "CUST",
		FieldSpecs: []core.FieldSpec{
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "email", Type: core.FieldText, Normalizer: NormalizeEmail},
			{Name: "phone", Type: core.FieldText, Normalizer: NormalizePhone},
			{Name: "address", Type: core.FieldText},
			{Name: "city", Type: core.FieldText},
			{Name: "state", Type: core.FieldText, Normalizer: NormalizeUsState},
			{Name: "status", Type: core.FieldEnum, EnumValues: []string{"active", "inactive"}, Normalizer: NormalizeEnumToken},
		},
	})
}

func registerUsers() {
	core.Register(core.EntityDefinition{
		Kind:   "users",
		Label:  "User",
		Plural: "users",
		Prefix: "USR",
		FieldSpecs: []core.FieldSpec{
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "email", Type: core.FieldText, Required: true, Normalizer: NormalizeEmail},
			{Name: "role", Type: core.FieldEnum, EnumValues: []string{"admin", "manager", "technician", "viewer"}, Normalizer: NormalizeEnumToken},
			{Name: "department", Type: core.FieldText},
			{Name: "phone", Type: core.FieldText, Normalizer: NormalizePhone},
			{Name: "isActive", Type: core.FieldBool},
		},
	})
}
