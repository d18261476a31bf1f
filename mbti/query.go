package mbti

import "sort"

const (
	// DefaultTopN is the ranking length used when callers pass n <= 0.
	DefaultTopN = 10
	// DefaultMostCommon is how many entries MostCommon keeps when n <= 0.
	DefaultMostCommon = 3
)

// GlobalAverage averages every type present in the table across the rows
// that carry it, sorted by average descending. Equal averages keep the
// canonical type order.
func GlobalAverage(t *Table) []TypeAverage {
	out := make([]TypeAverage, 0, len(t.types))
	for _, code := range t.types {
		var sum float64
		var n int
		for _, row := range t.rows {
			if v, ok := row.Values[code]; ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			continue
		}
		out = append(out, TypeAverage{Type: code, Average: sum / float64(n), Countries: n})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Average == out[j].Average {
			return typeOrder[out[i].Type] < typeOrder[out[j].Type]
		}
		return out[i].Average > out[j].Average
	})
	return out
}

// MostCommon returns the first n entries of a sorted average view, or all of
// them when fewer exist.
func MostCommon(avgs []TypeAverage, n int) []TypeAverage {
	if n <= 0 {
		n = DefaultMostCommon
	}
	if len(avgs) < n {
		n = len(avgs)
	}
	out := make([]TypeAverage, n)
	copy(out, avgs[:n])
	return out
}

// TopNByType ranks the countries with the highest percentage for code.
// Equal values keep input row order. Rows without a value for code are not
// ranked.
func TopNByType(t *Table, code TypeCode, n int) ([]RankedCountry, error) {
	if !IsTypeCode(code) || !t.HasType(code) {
		return nil, unknownType(code)
	}
	if n <= 0 {
		n = DefaultTopN
	}
	ranked := make([]RankedCountry, 0, len(t.rows))
	for _, row := range t.rows {
		if v, ok := row.Values[code]; ok {
			ranked = append(ranked, RankedCountry{Country: row.Country, Value: v})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value > ranked[j].Value
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

// Comparison is the result of comparing a reference country with a target.
// Both the wide and the long shape derive from it.
type Comparison struct {
	Reference string            `json:"reference"`
	Target    string            `json:"target"`
	Entries   []ComparisonEntry `json:"entries"`
}

// Compare pairs the reference and target percentages for every type both
// countries carry, in canonical type order. Identifiers match exactly.
func Compare(t *Table, reference, target string) (*Comparison, error) {
	ref, ok := t.Row(reference)
	if !ok {
		return nil, countryNotFound(reference)
	}
	tgt, ok := t.Row(target)
	if !ok {
		return nil, countryNotFound(target)
	}
	cmp := &Comparison{Reference: reference, Target: target}
	for _, code := range TypeCodes {
		rv, okR := ref.Values[code]
		tv, okT := tgt.Values[code]
		if !okR || !okT {
			continue
		}
		cmp.Entries = append(cmp.Entries, ComparisonEntry{Type: code, Reference: rv, Target: tv})
	}
	return cmp, nil
}

// Wide returns one row per type with both values side by side.
func (c *Comparison) Wide() []WideRow {
	out := make([]WideRow, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = WideRow(e)
	}
	return out
}

// Long returns one row per (country, type) pair: all reference rows first,
// then all target rows, each in canonical type order.
func (c *Comparison) Long() []LongRow {
	out := make([]LongRow, 0, 2*len(c.Entries))
	for _, e := range c.Entries {
		out = append(out, LongRow{Country: c.Reference, Type: e.Type, Value: e.Reference})
	}
	for _, e := range c.Entries {
		out = append(out, LongRow{Country: c.Target, Type: e.Type, Value: e.Target})
	}
	return out
}

// Types returns the compared type codes.
func (c *Comparison) Types() []TypeCode {
	out := make([]TypeCode, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Type
	}
	return out
}
