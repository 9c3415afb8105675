package models

import (
	"strconv"
	"time"
)

// AttributeValue is one derived EAV fact: (property, attribute, typed value).
// Exactly one of the four value columns is populated, matching the
// attribute's declared data type. Unique on (property_id, attribute_id).
type AttributeValue struct {
	ID           string    `json:"id" db:"id"`
	TenantID     string    `json:"tenant_id" db:"tenant_id"`
	PropertyID   string    `json:"property_id" db:"property_id"`
	AttributeID  string    `json:"attribute_id" db:"attribute_id"`
	ValueString  *string   `json:"value_string,omitempty" db:"value_string"`
	ValueInteger *int64    `json:"value_integer,omitempty" db:"value_integer"`
	ValueBoolean *bool     `json:"value_boolean,omitempty" db:"value_boolean"`
	ValueDecimal *float64  `json:"value_decimal,omitempty" db:"value_decimal"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// HasValue reports whether any scalar slot is populated.
func (v *AttributeValue) HasValue() bool {
	return v.ValueString != nil || v.ValueInteger != nil || v.ValueBoolean != nil || v.ValueDecimal != nil
}

// DerivedFact is an AttributeValue joined with its catalog attribute,
// as read back for matching and display.
type DerivedFact struct {
	AttributeValue
	AttributeName string            `json:"attribute_name" db:"attribute_name"`
	DataType      AttributeDataType `json:"data_type" db:"data_type"`
}

// StringValue renders the populated slot as a string, for display and for
// case-insensitive comparisons.
func (f *DerivedFact) StringValue() string {
	switch {
	case f.ValueString != nil:
		return *f.ValueString
	case f.ValueInteger != nil:
		return strconv.FormatInt(*f.ValueInteger, 10)
	case f.ValueBoolean != nil:
		return strconv.FormatBool(*f.ValueBoolean)
	case f.ValueDecimal != nil:
		return strconv.FormatFloat(*f.ValueDecimal, 'f', -1, 64)
	}
	return ""
}

// NumericValue returns the fact as a float64 when it holds a number.
func (f *DerivedFact) NumericValue() (float64, bool) {
	switch {
	case f.ValueInteger != nil:
		return float64(*f.ValueInteger), true
	case f.ValueDecimal != nil:
		return *f.ValueDecimal, true
	}
	return 0, false
}
