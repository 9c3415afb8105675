package models

import (
	"time"

	"github.com/Ramsey-B/briar/pkg/database"
)

// AttributeDataType is the declared scalar type of a catalog attribute.
type AttributeDataType string

const (
	AttributeDataTypeString  AttributeDataType = "string"
	AttributeDataTypeInteger AttributeDataType = "integer"
	AttributeDataTypeBoolean AttributeDataType = "boolean"
	AttributeDataTypeDecimal AttributeDataType = "decimal"
)

// IsValid reports whether the data type is one of the supported scalars.
func (t AttributeDataType) IsValid() bool {
	switch t {
	case AttributeDataTypeString, AttributeDataTypeInteger, AttributeDataTypeBoolean, AttributeDataTypeDecimal:
		return true
	}
	return false
}

// Attribute is one entry of the curated attribute catalog. Administrators
// create and edit these; the data type is immutable once facts reference
// the attribute.
type Attribute struct {
	ID           string                   `json:"id" db:"id"`
	TenantID     string                   `json:"tenant_id" db:"tenant_id"`
	Name         string                   `json:"name" db:"name"`
	DataType     AttributeDataType        `json:"data_type" db:"data_type"`
	IsFilterable bool                     `json:"is_filterable" db:"is_filterable"`
	Options      database.JSONB[[]string] `json:"options" db:"options"`
	CreatedAt    time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at" db:"updated_at"`

	// Scopes is loaded separately from attribute_scopes; not a column.
	Scopes []AttributeScope `json:"scopes,omitempty" db:"-"`
}

// AttributeScope binds an attribute to a property type with a display order.
type AttributeScope struct {
	AttributeID  string `json:"attribute_id" db:"attribute_id"`
	TenantID     string `json:"tenant_id" db:"tenant_id"`
	PropertyType string `json:"property_type" db:"property_type"`
	SortOrder    int    `json:"sort_order" db:"sort_order"`
}

// CreateAttributeRequest is the payload for creating a catalog attribute.
type CreateAttributeRequest struct {
	Name          string            `json:"name" validate:"required"`
	DataType      AttributeDataType `json:"data_type" validate:"required,oneof=string integer boolean decimal"`
	IsFilterable  bool              `json:"is_filterable"`
	Options       []string          `json:"options,omitempty"`
	PropertyTypes []string          `json:"property_types,omitempty"`
}

// UpdateAttributeRequest is the payload for editing a catalog attribute.
// DataType changes are rejected while facts reference the attribute.
type UpdateAttributeRequest struct {
	Name          *string            `json:"name,omitempty"`
	DataType      *AttributeDataType `json:"data_type,omitempty" validate:"omitempty,oneof=string integer boolean decimal"`
	IsFilterable  *bool              `json:"is_filterable,omitempty"`
	Options       []string           `json:"options,omitempty"`
	PropertyTypes []string           `json:"property_types,omitempty"`
}
