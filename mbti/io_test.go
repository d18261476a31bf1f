package mbti

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, data string) *Table {
	t.Helper()
	table, err := Parse(strings.NewReader(data), ParseOptions{})
	require.NoError(t, err)
	return table
}

func TestParseSplitSchema(t *testing.T) {
	table := parseString(t, "Country,ESTJ-A,ESTJ-T\nA,0.05,0.07\nB,0.10,0.02\n")

	assert.Equal(t, SchemaSplit, table.Schema().Variant)
	assert.Equal(t, []TypeCode{"ESTJ"}, table.Types())
	assert.Equal(t, []string{"A", "B"}, table.Countries())

	a, ok := table.Row("A")
	require.True(t, ok)
	v, ok := a.Value("ESTJ")
	require.True(t, ok)
	assert.Equal(t, (0.05+0.07)*100, v)

	b, _ := table.Row("B")
	v, _ = b.Value("ESTJ")
	assert.Equal(t, (0.10+0.02)*100, v)
	assert.InDelta(t, 12.0, v, 1e-9)
}

func TestParseMergedSchemaCopiesValues(t *testing.T) {
	table := parseString(t, "Country,ESTJ,INFP\nC,12.5,7.25\n")

	assert.Equal(t, SchemaMerged, table.Schema().Variant)
	row, ok := table.Row("C")
	require.True(t, ok)
	assert.Equal(t, map[TypeCode]float64{"ESTJ": 12.5, "INFP": 7.25}, row.Values)
}

func TestParseMissingTypesAreAbsent(t *testing.T) {
	// INFP has only the -A column and is therefore unbound.
	table := parseString(t, "Country,ESTJ-A,ESTJ-T,INFP-A\nA,0.1,0.2,0.3\n")

	assert.Equal(t, []TypeCode{"ESTJ"}, table.Types())
	assert.False(t, table.HasType("INFP"))
	row, _ := table.Row("A")
	_, ok := row.Value("INFP")
	assert.False(t, ok)
	assert.Len(t, row.Values, 1)
}

func TestParseEmptyCellLeavesTypeAbsentForRow(t *testing.T) {
	table := parseString(t, "Country,ESTJ-A,ESTJ-T\nA,0.1,\nB,0.1,0.1\n")

	a, _ := table.Row("A")
	_, ok := a.Value("ESTJ")
	assert.False(t, ok)
	b, _ := table.Row("B")
	_, ok = b.Value("ESTJ")
	assert.True(t, ok)
}

func TestParseHeaderNormalization(t *testing.T) {
	table := parseString(t, "\ufeff country , estj-a ,ESTJ-t\n  Japan ,0.2,0.3\n")

	assert.Equal(t, []string{"Japan"}, table.Countries())
	row, _ := table.Row("Japan")
	v, _ := row.Value("ESTJ")
	assert.InDelta(t, 50.0, v, 1e-9)
}

func TestParseSkipsBlankRecords(t *testing.T) {
	table := parseString(t, "Country,ESTJ\nA,1\n,\nB,2\n")
	assert.Equal(t, 2, table.Len())
}

func TestParseTSV(t *testing.T) {
	table, err := Parse(strings.NewReader("Country\tISTP\nA\t4.5\n"), ParseOptions{Comma: '\t'})
	require.NoError(t, err)
	row, _ := table.Row("A")
	assert.Equal(t, 4.5, row.Values["ISTP"])
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
		line int
	}{
		{name: "empty", data: ""},
		{name: "no country column", data: "Name,ESTJ\nA,1\n", line: 1},
		{name: "bad number", data: "Country,ESTJ\nA,abc\n", line: 2},
		{name: "infinite number", data: "Country,ESTJ\nA,Inf\n", line: 2},
		{name: "blank country", data: "Country,ESTJ\n,1\n", line: 2},
		{name: "duplicate country", data: "Country,ESTJ\nA,1\nA,2\n", line: 3},
		{name: "bad quoting", data: "Country,ESTJ\n\"A,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.data), ParseOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedSource)
			assert.NotErrorIs(t, err, ErrSourceNotFound)
			var se *SourceError
			require.True(t, errors.As(err, &se))
			if tt.line > 0 {
				assert.Equal(t, tt.line, se.Line)
			}
		})
	}
}

func TestParseIsPure(t *testing.T) {
	data := "Country,ESTJ-A,ESTJ-T,INTJ-A,INTJ-T\nA,0.01,0.02,0.03,0.04\nB,0.05,0.06,,0.08\n"
	first := parseString(t, data)
	second := parseString(t, data)
	if diff := cmp.Diff(first.Rows(), second.Rows()); diff != "" {
		t.Fatalf("tables differ (-first +second):\n%s", diff)
	}
}

func TestLoaderLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/countries.csv", []byte("Country,ESTJ\nA,10\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/countries.tsv", []byte("Country\tESTJ\nB\t20\n"), 0o644))
	loader := NewLoader(LoaderOptions{Fs: fs})

	table, err := loader.Load("/data/countries.csv")
	require.NoError(t, err)
	assert.Equal(t, "/data/countries.csv", table.Source().Path)
	assert.Equal(t, Digest([]byte("Country,ESTJ\nA,10\n")), table.Source().Digest)
	assert.Equal(t, int64(len("Country,ESTJ\nA,10\n")), table.Source().Size)

	tsv, err := loader.Load("/data/countries.tsv")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, tsv.Countries())
}

func TestLoaderSourceNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0o755))
	loader := NewLoader(LoaderOptions{Fs: fs})

	_, err := loader.Load("/data/missing.csv")
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.NotErrorIs(t, err, ErrMalformedSource)

	_, err = loader.Load("/data")
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestLoaderCustomCountryColumn(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d.csv", []byte("Land,ENFP\nX,3\n"), 0o644))
	loader := NewLoader(LoaderOptions{Fs: fs, Columns: ColumnCandidates{Country: []string{"land"}}})

	table, err := loader.Load("/d.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, table.Countries())
}

func TestDetectSchemaPrefersSplitPerType(t *testing.T) {
	schema, ok := DetectSchema([]string{"Country", "ESTJ", "ESTJ-A", "ESTJ-T", "INFP"}, ColumnCandidates{})
	require.True(t, ok)
	assert.Equal(t, SchemaSplit, schema.Variant)
	require.Len(t, schema.Bindings, 2)
	assert.Equal(t, ColumnBinding{Type: "ESTJ", Kind: BindSplit, Assertive: 2, Turbulent: 3, Merged: -1}, schema.Bindings[0])
	assert.Equal(t, ColumnBinding{Type: "INFP", Kind: BindMerged, Assertive: -1, Turbulent: -1, Merged: 4}, schema.Bindings[1])
}

func TestDetectSchemaNone(t *testing.T) {
	schema, ok := DetectSchema([]string{"Country", "Population"}, ColumnCandidates{})
	require.True(t, ok)
	assert.Equal(t, SchemaNone, schema.Variant)
	assert.Empty(t, schema.Bindings)
}

func TestParseTypeCode(t *testing.T) {
	code, err := ParseTypeCode(" intj ")
	require.NoError(t, err)
	assert.Equal(t, TypeCode("INTJ"), code)

	_, err = ParseTypeCode("ABCD")
	assert.ErrorIs(t, err, ErrUnknownType)
}
