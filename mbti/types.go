package mbti

import (
	"strings"
	"time"
)

// TypeCode is one of the 16 four-letter MBTI labels.
type TypeCode string

// TypeCodes lists the canonical type codes in enumeration order. Ties in
// every sorted view fall back to this order.
var TypeCodes = [16]TypeCode{
	"ESTJ", "ESFJ", "INFP", "ENFP", "ISFJ", "ENFJ", "ESTP", "ISTJ",
	"INTP", "INFJ", "ISFP", "ENTJ", "ESFP", "ENTP", "INTJ", "ISTP",
}

var typeOrder = func() map[TypeCode]int {
	m := make(map[TypeCode]int, len(TypeCodes))
	for i, code := range TypeCodes {
		m[code] = i
	}
	return m
}()

// IsTypeCode reports whether code is one of the canonical codes.
func IsTypeCode(code TypeCode) bool {
	_, ok := typeOrder[code]
	return ok
}

// ParseTypeCode turns user input such as " intj " into a canonical code.
func ParseTypeCode(raw string) (TypeCode, error) {
	code := TypeCode(strings.ToUpper(NormalizeText(raw)))
	if !IsTypeCode(code) {
		return "", unknownType(TypeCode(raw))
	}
	return code, nil
}

// SchemaVariant names the raw column layout of a dataset.
type SchemaVariant string

const (
	// SchemaNone means no type column could be bound.
	SchemaNone SchemaVariant = "none"
	// SchemaSplit spreads each type over "<TYPE>-A" and "<TYPE>-T" fraction columns.
	SchemaSplit SchemaVariant = "split"
	// SchemaMerged stores one already merged percentage column per type.
	SchemaMerged SchemaVariant = "merged"
)

// BindingKind selects how a single type code is read from a row.
type BindingKind int

const (
	// BindSplit sums the -A and -T fractions and scales them to a percentage.
	BindSplit BindingKind = iota + 1
	// BindMerged copies a percentage column unchanged.
	BindMerged
)

func (k BindingKind) String() string {
	switch k {
	case BindSplit:
		return "split"
	case BindMerged:
		return "merged"
	default:
		return "unbound"
	}
}

// ColumnBinding ties a type code to its header columns.
type ColumnBinding struct {
	Type TypeCode
	Kind BindingKind
	// Assertive and Turbulent are the -A/-T column indices for split bindings.
	Assertive int
	Turbulent int
	// Merged is the column index for merged bindings.
	Merged int
}

// Schema is the layout detected from a header row.
type Schema struct {
	Variant       SchemaVariant
	CountryColumn int
	Bindings      []ColumnBinding
}

// Types returns the bound type codes in canonical order.
func (s Schema) Types() []TypeCode {
	out := make([]TypeCode, len(s.Bindings))
	for i, b := range s.Bindings {
		out[i] = b.Type
	}
	return out
}

// SourceID identifies the bytes a table was built from.
type SourceID struct {
	Path    string    `json:"path,omitempty"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	// Digest is the hex SHA-1 of the file content.
	Digest string `json:"digest"`
}

// CanonicalRow holds one country's percentages. Types without a value are
// absent from Values.
type CanonicalRow struct {
	Country string               `json:"country"`
	Values  map[TypeCode]float64 `json:"values"`
}

// Value returns the percentage for code and whether the row carries it.
func (r CanonicalRow) Value(code TypeCode) (float64, bool) {
	v, ok := r.Values[code]
	return v, ok
}

func (r CanonicalRow) clone() CanonicalRow {
	values := make(map[TypeCode]float64, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return CanonicalRow{Country: r.Country, Values: values}
}

// TypeAverage is one entry of the global average view.
type TypeAverage struct {
	Type    TypeCode `json:"type"`
	Average float64  `json:"average"`
	// Countries is how many rows contributed to the average.
	Countries int `json:"countries"`
}

// RankedCountry is one entry of the per-type ranking.
type RankedCountry struct {
	Rank    int     `json:"rank"`
	Country string  `json:"country"`
	Value   float64 `json:"value"`
}

// ComparisonEntry pairs the reference and target percentages for a type.
type ComparisonEntry struct {
	Type      TypeCode `json:"type"`
	Reference float64  `json:"reference"`
	Target    float64  `json:"target"`
}

// WideRow is the one-row-per-type comparison shape.
type WideRow struct {
	Type      TypeCode `json:"type"`
	Reference float64  `json:"reference"`
	Target    float64  `json:"target"`
}

// LongRow is the one-row-per-(country, type) comparison shape.
type LongRow struct {
	Country string   `json:"country"`
	Type    TypeCode `json:"type"`
	Value   float64  `json:"value"`
}
