package expense

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andeen171/onfly-api/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	MaxDescriptionLength = 191
	DateLayout           = "2006-01-02"

	// maxValueLength bounds the raw text of a value before it is parsed.
	maxValueLength = 64
	// maxValueExponent is the largest exponent a value within MaxValue can carry.
	maxValueExponent = 10
)

// MaxValue is the largest amount a NUMERIC(12,2) column holds.
var MaxValue = decimal.RequireFromString("9999999999.99")

// dateLayouts are tried in order; anything with a time part is cut to its calendar date.
var dateLayouts = []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05"}

// Payload is an expense write request as decoded from JSON.
// Absent fields stay unset; any client user_id is ignored.
type Payload struct {
	Description Text   `json:"description"`
	Date        Text   `json:"date"`
	Value       Number `json:"value"`
}

// Text holds a JSON field that should be a string. Any other JSON type is kept
// as raw text and reported as a field error instead of a decode failure.
type Text struct {
	raw      string
	set      bool
	isString bool
}

// TextOf wraps s as if a client had sent it as a JSON string.
func TextOf(s string) Text {
	return Text{raw: s, set: true, isString: true}
}

func (t *Text) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*t = Text{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*t = TextOf(str)
		return nil
	}
	*t = Text{raw: s, set: true}
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	switch {
	case !t.set:
		return []byte("null"), nil
	case !t.isString:
		return []byte(t.raw), nil
	}
	return json.Marshal(t.raw)
}

// IsSet reports whether the client sent a non-null value.
func (t Text) IsSet() bool { return t.set }

// IsString reports whether the client sent a JSON string.
func (t Text) IsString() bool { return t.isString }

func (t Text) String() string { return t.raw }

// Number keeps the raw text of a JSON number or numeric string so that parsing
// problems surface as field errors instead of decode failures.
type Number struct {
	raw string
	set bool
}

// NumberOf wraps s as if it had been sent by a client.
func NumberOf(s string) Number {
	return Number{raw: strings.TrimSpace(s), set: true}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = Number{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = str
	}
	*n = NumberOf(s)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.set {
		return []byte("null"), nil
	}
	return json.Marshal(n.raw)
}

// IsSet reports whether the client sent a non-null value.
func (n Number) IsSet() bool { return n.set }

func (n Number) String() string { return n.raw }

// Validator checks expense payloads against the field rules.
type Validator struct {
	now      func() time.Time
	validate *validator.Validate
}

// NewValidator returns a Validator using now as the server clock; nil means time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now, validate: validation.New()}
}

// Validate checks every rule and collects all violations. On failure the error is a
// validation.FieldErrors. On success the date is at UTC midnight and the value is
// rounded to two decimal places.
func (v *Validator) Validate(p Payload) (Fields, error) {
	var out Fields
	errs := validation.FieldErrors{}

	if p.Description.IsSet() && !p.Description.IsString() {
		errs.Add("description", "The description must be a string.")
	} else {
		description := strings.TrimSpace(p.Description.String())
		errs.Var(v.validate, "description", description, fmt.Sprintf("required,max=%d", MaxDescriptionLength))
		out.Description = description
	}

	if date, msg := v.checkDate(p.Date); msg != "" {
		errs.Add("date", msg)
	} else {
		out.Date = date
	}

	if value, msg := checkValue(p.Value); msg != "" {
		errs.Add("value", msg)
	} else {
		out.Value = value
	}

	if len(errs) > 0 {
		return Fields{}, errs
	}
	return out, nil
}

func (v *Validator) checkDate(raw Text) (time.Time, string) {
	if !raw.IsSet() || (raw.IsString() && strings.TrimSpace(raw.String()) == "") {
		return time.Time{}, validation.Message("date", "required", "")
	}
	if !raw.IsString() {
		return time.Time{}, "The date is not a valid date."
	}
	date, ok := ParseDate(raw.String())
	if !ok {
		return time.Time{}, "The date is not a valid date."
	}
	if date.After(Today(v.now())) {
		return time.Time{}, "The date must be a date before or equal to today."
	}
	return date, ""
}

func checkValue(n Number) (decimal.Decimal, string) {
	if !n.IsSet() || n.raw == "" {
		return decimal.Decimal{}, validation.Message("value", "required", "")
	}
	if len(n.raw) > maxValueLength {
		return decimal.Decimal{}, fmt.Sprintf("The value may not be greater than %d characters.", maxValueLength)
	}
	d, err := decimal.NewFromString(n.raw)
	if err != nil {
		return decimal.Decimal{}, "The value must be a number."
	}
	if d.IsNegative() {
		return decimal.Decimal{}, "The value must be at least 0."
	}
	// Round and GreaterThan rescale through 10^exponent; extreme exponents are
	// settled before either runs.
	if d.Coefficient().Sign() == 0 {
		return decimal.Zero.Round(2), ""
	}
	digits := int64(len(d.Coefficient().String()))
	exp := int64(d.Exponent())
	switch {
	case exp > maxValueExponent:
		return decimal.Decimal{}, tooLarge()
	case digits+exp < -2:
		// below half a cent
		return decimal.Zero.Round(2), ""
	}
	d = d.Round(2)
	if d.GreaterThan(MaxValue) {
		return decimal.Decimal{}, tooLarge()
	}
	return d, ""
}

func tooLarge() string {
	return fmt.Sprintf("The value may not be greater than %s.", MaxValue.StringFixed(2))
}

// ParseDate reads a calendar date and returns it at UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// Today is the calendar date of now in now's own location, at UTC midnight.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
