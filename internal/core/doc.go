// Package core provides the business logic of maintrack: entity CRUD,
// sequential identifier allocation and CSV import.
//
// The package is independent of any transport or database. Web handlers,
// the maintctl command and tests all drive the same [Service], which talks
// to persistence only through the [Store] interface.
//
// # Entity Registry
//
// Entity kinds are registered at init time using [Register] (see the
// entities subpackage). Each [EntityDefinition] carries everything needed to
// validate, store and import one kind:
//
//	core.Register(core.EntityDefinition{
//	    Kind:   "customers",
//	    Label:  "Customer",
//	    Plural: "customers",
//	    Prefix: "CUST",
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "name", Type: core.FieldText, Required: true},
//	        {Name: "creditLimit", Type: core.FieldNumeric},
//	    },
//	})
//
// # Identifiers
//
// Created entities receive "<PREFIX><NNN>" identifiers, zero-padded to three
// digits and widening past 999. A per-prefix sequence only ever moves
// forward, so an identifier is never handed out twice even after its entity
// is deleted. Collisions with concurrent writers are retried.
//
// # Import
//
// An upload runs through four stages:
//
//  1. [Parse] splits delimited text into a header and rows
//  2. [Validate] rejects the file if required columns or values are missing
//  3. [Convert] zips each row against the header into a [Record]
//  4. [Service.BatchUpsert] creates or replaces each entity by its id
//
// Only the last stage writes, and a bad row there is reported as
// "<Label> <id>: <reason>" without stopping the rest. [Service.PreviewImport]
// runs the same stages read-only.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError].
// Each category has a code for support reference:
//
//   - DB001-DB006: storage errors
//   - VAL001-VAL007: field and file validation
//   - FILE001-FILE004: upload problems
//   - IMP001-IMP003: import concurrency and deadlines
//   - ENT001-ENT002: unknown kinds and missing records
//
// # Activity Log
//
// Every create, update, delete and import is recorded with the acting user
// taken from the context. Entries older than the retention window are pruned
// by [Service.StartActivityPruner].
package core
