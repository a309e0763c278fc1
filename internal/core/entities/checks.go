package entities

import (
	"fmt"

	"github.com/JonMunkholm/maintrack/internal/core"
)

// dateOrder returns a check that rejects end dates earlier than start
// dates. Dates are stored as YYYY-MM-DD so string order is date order.
func dateOrder(startField, endField string) func(core.Fields) error {
	return func(f core.Fields) error {
		start, _ := f[startField].(string)
		end, _ := f[endField].(string)
		if start == "" || end == "" || end >= start {
			return nil
		}
		return core.FieldErrors{{
			Field:   endField,
			Message: fmt.Sprintf("%s %s is before %s %s", endField, end, startField, start),
		}}
	}
}
