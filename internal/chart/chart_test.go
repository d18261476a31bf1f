package chart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/mbtidash/mbti"
)

func sampleTable(t *testing.T) *mbti.Table {
	t.Helper()
	data := "Country,ESTJ,INFP,INTJ\nSouth Korea,10,12,3\nUnited States,9,7,4\nJapan,8,14,5\n"
	table, err := mbti.Parse(strings.NewReader(data), mbti.ParseOptions{})
	require.NoError(t, err)
	return table
}

func assertImage(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestAverageChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avg.png")
	require.NoError(t, AverageChart(path, mbti.GlobalAverage(sampleTable(t)), DefaultSize))
	assertImage(t, path)
}

func TestTopNChart(t *testing.T) {
	top, err := mbti.TopNByType(sampleTable(t), "INFP", 2)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "top.svg")
	require.NoError(t, TopNChart(path, "INFP", top, Size{}))
	assertImage(t, path)
}

func TestComparisonChart(t *testing.T) {
	cmp, err := mbti.Compare(sampleTable(t), "South Korea", "Japan")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "cmp.png")
	require.NoError(t, ComparisonChart(path, cmp, DefaultSize))
	assertImage(t, path)
}

func TestChartsRejectEmptyViews(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, AverageChart(filepath.Join(dir, "a.png"), nil, DefaultSize), ErrNoData)
	assert.ErrorIs(t, TopNChart(filepath.Join(dir, "b.png"), "ESTJ", nil, DefaultSize), ErrNoData)
	assert.ErrorIs(t, ComparisonChart(filepath.Join(dir, "c.png"), nil, DefaultSize), ErrNoData)
}

func TestWriteAll(t *testing.T) {
	table := sampleTable(t)
	avgs := mbti.GlobalAverage(table)
	top, err := mbti.TopNByType(table, "ESTJ", 10)
	require.NoError(t, err)
	cmp, err := mbti.Compare(table, "South Korea", "United States")
	require.NoError(t, err)
	snap := &mbti.Snapshot{Averages: avgs, SelectedType: "ESTJ", Top: top, Comparison: cmp}

	dir := filepath.Join(t.TempDir(), "charts")
	written, err := WriteAll(dir, snap, DefaultSize)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "average.png"),
		filepath.Join(dir, "top_estj.png"),
		filepath.Join(dir, "compare.png"),
	}, written)

	// A snapshot without a comparison skips that chart.
	snap.Comparison = nil
	written, err = WriteAll(t.TempDir(), snap, DefaultSize)
	require.NoError(t, err)
	assert.Len(t, written, 2)
}
