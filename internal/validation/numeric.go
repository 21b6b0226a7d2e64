package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

// Numeric is a decimal that arrives either as a JSON number or a string.
// The zero value means the field was absent.
type Numeric string

// UnmarshalJSON accepts numbers, strings and null.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("numeric: %w", err)
	}
	*n = Numeric(num.String())
	return nil
}

// Empty reports whether no value was supplied.
func (n Numeric) Empty() bool {
	return n == ""
}

// Decimal parses the value. An empty value parses as zero.
func (n Numeric) Decimal() (decimal.Decimal, error) {
	if n.Empty() {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(string(n))
}

// JSONSchema describes Numeric as a number or numeric string.
func (Numeric) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "number"},
			{Type: "string", Pattern: `^-?[0-9]+(\.[0-9]+)?$`},
		},
	}
}
