package assembly

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Input is a staged numeric field. While the operator types it holds the raw text
// (e.g. "1," on the way to "1,5"); Commit parses it into a value.
type Input struct {
	raw    string
	value  decimal.Decimal
	parsed bool
}

func Raw(text string) Input {
	return Input{raw: text}
}

func Parsed(value decimal.Decimal) Input {
	return Input{value: value, parsed: true}
}

func (i Input) IsParsed() bool { return i.parsed }

// Text returns what the field currently displays.
func (i Input) Text() string {
	if i.parsed {
		return i.value.String()
	}
	return i.raw
}

// Commit parses a raw input. Empty or unparseable text becomes zero.
func (i Input) Commit() Input {
	if i.parsed {
		return i
	}
	return Parsed(ParseLenient(i.raw))
}

// Value is the numeric value, parsing leniently if the input is still raw.
func (i Input) Value() decimal.Decimal {
	return i.Commit().value
}

func (i Input) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Value())
}

func (i *Input) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err == nil {
		*i = Parsed(d)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*i = Raw(s).Commit()
	return nil
}

// ParseLenient accepts "1,5", "1.5", "1.234,5" and " 2 ". Anything else is zero.
func ParseLenient(text string) decimal.Decimal {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	s = strings.TrimSuffix(s, ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
