package expense

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/andeen171/onfly-api/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)

func newTestValidator() *Validator {
	return NewValidator(func() time.Time { return fixedNow })
}

func fieldErrors(t *testing.T, err error) validation.FieldErrors {
	t.Helper()
	var fields validation.FieldErrors
	require.True(t, errors.As(err, &fields), "expected validation.FieldErrors, got %T (%v)", err, err)
	return fields
}

func TestValidate_Valid(t *testing.T) {
	fields, err := newTestValidator().Validate(Payload{
		Description: TextOf("  Lunch  "),
		Date:        TextOf("2022-01-01"),
		Value:       NumberOf("10.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Lunch", fields.Description)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), fields.Date)
	assert.Equal(t, "10.50", fields.Value.StringFixed(2))
}

func TestValidate_Boundaries(t *testing.T) {
	cases := []struct {
		name  string
		desc  string
		date  string
		value string
		want  string
	}{
		{"one character", "x", "2024-06-15", "0", "0.00"},
		{"max length", strings.Repeat("a", MaxDescriptionLength), "2024-06-15", "1", "1.00"},
		{"multibyte at max length", strings.Repeat("é", MaxDescriptionLength), "2000-02-29", "1", "1.00"},
		{"today is allowed", "today", "2024-06-15", "12", "12.00"},
		{"rounds half up", "round", "2024-01-01", "0.125", "0.13"},
		{"rounds down", "round", "2024-01-01", "2.344", "2.34"},
		{"largest value", "big", "2024-01-01", "9999999999.99", "9999999999.99"},
		{"exponent form", "exp", "2024-01-01", "1e2", "100.00"},
		{"tiny exponent rounds to zero", "exp", "2024-01-01", "1e-99999999", "0.00"},
		{"zero with huge exponent", "exp", "2024-01-01", "0e99999999", "0.00"},
		{"half a cent with exponent", "exp", "2024-01-01", "5e-3", "0.01"},
		{"rfc3339 date", "ts", "2024-06-15T23:59:59Z", "3", "3.00"},
	}

	v := newTestValidator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields, err := v.Validate(Payload{Description: TextOf(tc.desc), Date: TextOf(tc.date), Value: NumberOf(tc.value)})
			require.NoError(t, err)
			assert.Equal(t, tc.want, fields.Value.StringFixed(2))
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		payload Payload
		field   string
		message string
	}{
		{"description too long", Payload{Description: TextOf(strings.Repeat("a", 192)), Date: TextOf("2024-01-01"), Value: NumberOf("1")},
			"description", "The description may not be greater than 191 characters."},
		{"description blank", Payload{Description: TextOf("   "), Date: TextOf("2024-01-01"), Value: NumberOf("1")},
			"description", "The description field is required."},
		{"date tomorrow", Payload{Description: TextOf("x"), Date: TextOf("2024-06-16"), Value: NumberOf("1")},
			"date", "The date must be a date before or equal to today."},
		{"date unparseable", Payload{Description: TextOf("x"), Date: TextOf("2024-13-45"), Value: NumberOf("1")},
			"date", "The date is not a valid date."},
		{"value negative", Payload{Description: TextOf("x"), Date: TextOf("2024-01-01"), Value: NumberOf("-0.01")},
			"value", "The value must be at least 0."},
		{"value tiny negative", Payload{Description: TextOf("x"), Date: TextOf("2024-01-01"), Value: NumberOf("-0.001")},
			"value", "The value must be at least 0."},
		{"value not numeric", Payload{Description: TextOf("x"), Date: TextOf("2024-01-01"), Value: NumberOf("ten")},
			"value", "The value must be a number."},
		{"value too large", Payload{Description: TextOf("x"), Date: TextOf("2024-01-01"), Value: NumberOf("10000000000")},
			"value", "The value may not be greater than 9999999999.99."},
		{"value huge exponent", Payload{Description: TextOf("x"), Date: TextOf("2024-01-01"), Value: NumberOf("1e99999999")},
			"value", "The value may not be greater than 9999999999.99."},
		{"value negative tiny exponent", Payload{Description: TextOf("x"), Date: TextOf("2024-01-01"), Value: NumberOf("-1e-99999999")},
			"value", "The value must be at least 0."},
		{"value too long", Payload{Description: TextOf("x"), Date: TextOf("2024-01-01"), Value: NumberOf("0." + strings.Repeat("1", 80))},
			"value", "The value may not be greater than 64 characters."},
	}

	v := newTestValidator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(tc.payload)
			fields := fieldErrors(t, err)
			assert.Len(t, fields, 1, "only %s should fail: %v", tc.field, fields)
			assert.Equal(t, []string{tc.message}, fields[tc.field])
		})
	}
}

func TestValidate_ExtremeExponentsFinishQuickly(t *testing.T) {
	v := newTestValidator()
	for _, raw := range []string{"1e99999999", "1e-99999999", "-1e99999999", "0e99999999", "123456789e-2147483000"} {
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = v.Validate(Payload{Description: TextOf("x"), Date: TextOf("2024-01-01"), Value: NumberOf(raw)})
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("%s: validation did not finish within a second", raw)
		}
	}
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	_, err := newTestValidator().Validate(Payload{})
	fields := fieldErrors(t, err)

	assert.Equal(t, []string{"The description field is required."}, fields["description"])
	assert.Equal(t, []string{"The date field is required."}, fields["date"])
	assert.Equal(t, []string{"The value field is required."}, fields["value"])
}

func TestValidate_UsesServerClockInItsLocation(t *testing.T) {
	// 01:00 on the 16th in UTC+3 is still the 15th in UTC; the server's local date wins.
	loc := time.FixedZone("UTC+3", 3*60*60)
	v := NewValidator(func() time.Time { return time.Date(2024, 6, 16, 1, 0, 0, 0, loc) })

	_, err := v.Validate(Payload{Description: TextOf("x"), Date: TextOf("2024-06-16"), Value: NumberOf("1")})
	assert.NoError(t, err)
}

func TestPayload_DecodeJSON(t *testing.T) {
	cases := []struct {
		body  string
		set   bool
		value string
	}{
		{`{"value": 10.5}`, true, "10.5"},
		{`{"value": "12"}`, true, "12"},
		{`{"value": null}`, false, ""},
		{`{}`, false, ""},
		{`{"value": true}`, true, "true"},
	}
	for _, tc := range cases {
		var p Payload
		require.NoError(t, json.Unmarshal([]byte(tc.body), &p), tc.body)
		assert.Equal(t, tc.set, p.Value.IsSet(), tc.body)
		assert.Equal(t, tc.value, p.Value.String(), tc.body)
	}
}

func TestPayload_WrongTypesAreFieldErrors(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"description": 5, "date": 20220101, "value": 1}`), &p))
	assert.True(t, p.Description.IsSet())
	assert.False(t, p.Description.IsString())

	_, err := newTestValidator().Validate(p)
	fields := fieldErrors(t, err)
	assert.Len(t, fields, 2)
	assert.Equal(t, []string{"The description must be a string."}, fields["description"])
	assert.Equal(t, []string{"The date is not a valid date."}, fields["date"])
}

func TestPayload_DecodeText(t *testing.T) {
	cases := []struct {
		body     string
		set      bool
		isString bool
		text     string
	}{
		{`{"description": "Lunch"}`, true, true, "Lunch"},
		{`{"description": ""}`, true, true, ""},
		{`{"description": null}`, false, false, ""},
		{`{}`, false, false, ""},
		{`{"description": ["a"]}`, true, false, `["a"]`},
		{`{"description": false}`, true, false, "false"},
	}
	for _, tc := range cases {
		var p Payload
		require.NoError(t, json.Unmarshal([]byte(tc.body), &p), tc.body)
		assert.Equal(t, tc.set, p.Description.IsSet(), tc.body)
		assert.Equal(t, tc.isString, p.Description.IsString(), tc.body)
		assert.Equal(t, tc.text, p.Description.String(), tc.body)
	}
}

func TestPayload_IgnoresClientUserID(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"description":"a","date":"2024-01-01","value":1,"user_id":99}`), &p))
	_, err := newTestValidator().Validate(p)
	assert.NoError(t, err)
}

func TestNumber_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Payload{Description: TextOf("a"), Date: TextOf("2024-01-01"), Value: NumberOf("3.20")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"description":"a","date":"2024-01-01","value":"3.20"}`, string(b))
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("2024-02-29 10:11:12")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, ok = ParseDate("2023-02-29")
	assert.False(t, ok)
}
