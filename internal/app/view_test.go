package app

import (
	"strings"
	"testing"

	"fyne.io/fyne/v2/data/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/mbtidash/mbti"
)

func sampleSnapshot(t *testing.T) *mbti.Snapshot {
	t.Helper()
	table, err := mbti.Parse(strings.NewReader("Country,ESTJ,INFP\nSouth Korea,10,12\nJapan,8,14\n"), mbti.ParseOptions{})
	require.NoError(t, err)
	avgs := mbti.GlobalAverage(table)
	top, err := mbti.TopNByType(table, "INFP", 10)
	require.NoError(t, err)
	cmp, err := mbti.Compare(table, "South Korea", "Japan")
	require.NoError(t, err)
	return &mbti.Snapshot{
		Countries:    table.Countries(),
		Types:        table.Types(),
		Averages:     avgs,
		MostCommon:   mbti.MostCommon(avgs, 3),
		SelectedType: "INFP",
		Top:          top,
		Reference:    "South Korea",
		Target:       "Japan",
		Comparison:   cmp,
	}
}

func formatter(t *testing.T) *mbti.PercentFormatter {
	t.Helper()
	f, err := mbti.NewPercentFormatter("en")
	require.NoError(t, err)
	return f
}

func TestViews(t *testing.T) {
	snap := sampleSnapshot(t)
	f := formatter(t)

	avg := averageView(snap.Averages, f)
	require.Len(t, avg.rows, 2)
	assert.Equal(t, []string{"1", "INFP", "13.00%", "2"}, avg.rows[0])

	top := topView(snap.SelectedType, snap.Top, f)
	assert.Equal(t, "INFP", top.columns[2].Title)
	assert.Equal(t, []string{"1", "Japan", "14.00%"}, top.rows[0])

	cmp := compareView(snap.Comparison, f)
	assert.Equal(t, "South Korea", cmp.columns[1].Title)
	assert.Equal(t, []string{"ESTJ", "10.00%", "8.00%", "-2.00%"}, cmp.rows[0])
	assert.Equal(t, "+2.00%", cmp.rows[1][3])

	assert.Empty(t, compareView(nil, f).rows)
	assert.Equal(t, "", avg.cell(5, 0))
	assert.Equal(t, "", avg.cell(0, 9))
}

func TestBars(t *testing.T) {
	snap := sampleSnapshot(t)
	bars := averageBars(snap.Averages)
	require.Len(t, bars, 2)
	assert.Equal(t, 13.0, largestValue(bars))
	assert.Equal(t, float32(100), barLength(13, 13, 100))
	assert.Equal(t, float32(50), barLength(6.5, 13, 100))
	assert.Zero(t, barLength(0, 13, 100))
	assert.Zero(t, barLength(5, 0, 100))

	assert.Equal(t, "Japan", topBars(snap.Top)[0].Label)
}

func TestSummaryText(t *testing.T) {
	assert.Equal(t, "データ未読込", summaryText(nil))
	snap := sampleSnapshot(t)
	assert.Equal(t, "国:2 / タイプ:2 / 最多:INFP, ESTJ", summaryText(snap))
	snap.ReferenceMissing = true
	assert.Contains(t, summaryText(snap), "基準国 South Korea")
}

func TestLogSinkKeepsLastLines(t *testing.T) {
	b := binding.NewString()
	sink := newLogSink(b, 2)
	_, err := sink.Write([]byte("one\r\ntwo\n\nthree\n"))
	require.NoError(t, err)
	assert.Equal(t, "two\nthree", sink.text())

	got, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, "two\nthree", got)
}

func TestLoggerWritesToSink(t *testing.T) {
	b := binding.NewString()
	sink := newLogSink(b, 10)
	logger := newLogger(sink, "debug")
	logger.Info("dataset loaded")
	assert.Contains(t, sink.text(), "dataset loaded")
	assert.Contains(t, sink.text(), "INFO")
}
