package mbti

import "strings"

const (
	assertiveSuffix = "-A"
	turbulentSuffix = "-T"
)

// ColumnCandidates defines possible header names for auto-detecting the
// country column.
type ColumnCandidates struct {
	Country []string `json:"country" yaml:"country"`
}

func defaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		Country: []string{"Country", "country_name", "Nation", "국가", "国"},
	}
}

// DefaultColumnCandidates returns the built-in column detection candidates.
func DefaultColumnCandidates() ColumnCandidates {
	return defaultColumnCandidates().clone()
}

// WithDefaults fills nil fields from the built-in candidates.
func (c ColumnCandidates) WithDefaults() ColumnCandidates {
	defaults := defaultColumnCandidates()
	return ColumnCandidates{
		Country: pickStrings(c.Country, defaults.Country),
	}
}

func (c ColumnCandidates) clone() ColumnCandidates {
	return ColumnCandidates{Country: cloneStrings(c.Country)}
}

func pickStrings(custom, fallback []string) []string {
	if custom == nil {
		return cloneStrings(fallback)
	}
	return cloneStrings(custom)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func findColumn(header []string, candidates []string) int {
	for i, col := range header {
		for _, cand := range candidates {
			if strings.EqualFold(col, NormalizeText(cand)) {
				return i
			}
		}
	}
	return -1
}

// DetectSchema binds every canonical type code to its header columns. A type
// with both split columns is bound as split; otherwise a merged column is
// used; types with neither stay unbound.
func DetectSchema(header []string, candidates ColumnCandidates) (Schema, bool) {
	cleaned := NormalizeAll(header)
	schema := Schema{Variant: SchemaNone, CountryColumn: findColumn(cleaned, candidates.WithDefaults().Country)}
	if schema.CountryColumn < 0 {
		return schema, false
	}

	index := make(map[string]int, len(cleaned))
	for i, cell := range cleaned {
		key := strings.ToUpper(cell)
		if _, dup := index[key]; dup || i == schema.CountryColumn {
			continue
		}
		index[key] = i
	}

	var split, merged int
	for _, code := range TypeCodes {
		a, okA := index[string(code)+assertiveSuffix]
		t, okT := index[string(code)+turbulentSuffix]
		if okA && okT {
			schema.Bindings = append(schema.Bindings, ColumnBinding{
				Type: code, Kind: BindSplit, Assertive: a, Turbulent: t, Merged: -1,
			})
			split++
			continue
		}
		if m, ok := index[string(code)]; ok {
			schema.Bindings = append(schema.Bindings, ColumnBinding{
				Type: code, Kind: BindMerged, Assertive: -1, Turbulent: -1, Merged: m,
			})
			merged++
		}
	}
	switch {
	case split > 0:
		schema.Variant = SchemaSplit
	case merged > 0:
		schema.Variant = SchemaMerged
	}
	return schema, true
}
