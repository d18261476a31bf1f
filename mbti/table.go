package mbti

// Table is the canonical per-country, per-type percentage matrix. It is
// immutable once built; accessors hand out copies.
type Table struct {
	rows   []CanonicalRow
	byName map[string]int
	types  []TypeCode
	schema Schema
	source SourceID
}

func newTable(rows []CanonicalRow, schema Schema, source SourceID) *Table {
	byName := make(map[string]int, len(rows))
	for i, row := range rows {
		byName[row.Country] = i
	}
	return &Table{
		rows:   rows,
		byName: byName,
		types:  schema.Types(),
		schema: schema,
		source: source,
	}
}

// Len returns the number of countries.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns a copy of the rows in input order.
func (t *Table) Rows() []CanonicalRow {
	out := make([]CanonicalRow, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.clone()
	}
	return out
}

// Row looks up a country by exact, case-sensitive identifier.
func (t *Table) Row(country string) (CanonicalRow, bool) {
	idx, ok := t.byName[country]
	if !ok {
		return CanonicalRow{}, false
	}
	return t.rows[idx].clone(), true
}

// Countries returns the country identifiers in input order.
func (t *Table) Countries() []string {
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.Country
	}
	return out
}

// Types returns the type codes bound by the schema, in canonical order.
func (t *Table) Types() []TypeCode {
	out := make([]TypeCode, len(t.types))
	copy(out, t.types)
	return out
}

// HasType reports whether the table carries a column for code.
func (t *Table) HasType(code TypeCode) bool {
	for _, c := range t.types {
		if c == code {
			return true
		}
	}
	return false
}

// Schema returns the layout the table was built from.
func (t *Table) Schema() Schema {
	s := t.schema
	s.Bindings = append([]ColumnBinding(nil), t.schema.Bindings...)
	return s
}

// Source returns the identity of the bytes the table was built from.
func (t *Table) Source() SourceID {
	return t.source
}
