package app

import (
	"fmt"
	"strconv"

	"yashubustudio/mbtidash/mbti"
)

type tableColumn struct {
	Title string
	Width float32
}

// gridView is a rendered table: header columns plus text cells.
type gridView struct {
	columns []tableColumn
	rows    [][]string
}

func (g gridView) cell(row, col int) string {
	if row < 0 || row >= len(g.rows) || col < 0 || col >= len(g.rows[row]) {
		return ""
	}
	return g.rows[row][col]
}

type bar struct {
	Label string
	Value float64
}

func averageView(avgs []mbti.TypeAverage, f *mbti.PercentFormatter) gridView {
	g := gridView{columns: []tableColumn{
		{Title: "#", Width: 48},
		{Title: "タイプ", Width: 90},
		{Title: "平均", Width: 110},
		{Title: "国数", Width: 80},
	}}
	for i, a := range avgs {
		g.rows = append(g.rows, []string{strconv.Itoa(i + 1), string(a.Type), f.Format(a.Average), strconv.Itoa(a.Countries)})
	}
	return g
}

func topView(code mbti.TypeCode, ranked []mbti.RankedCountry, f *mbti.PercentFormatter) gridView {
	g := gridView{columns: []tableColumn{
		{Title: "順位", Width: 60},
		{Title: "国", Width: 220},
		{Title: string(code), Width: 110},
	}}
	for _, r := range ranked {
		g.rows = append(g.rows, []string{strconv.Itoa(r.Rank), r.Country, f.Format(r.Value)})
	}
	return g
}

func compareView(cmp *mbti.Comparison, f *mbti.PercentFormatter) gridView {
	if cmp == nil {
		return gridView{columns: []tableColumn{{Title: "タイプ", Width: 90}}}
	}
	g := gridView{columns: []tableColumn{
		{Title: "タイプ", Width: 90},
		{Title: cmp.Reference, Width: 160},
		{Title: cmp.Target, Width: 160},
		{Title: "差", Width: 110},
	}}
	for _, r := range cmp.Wide() {
		g.rows = append(g.rows, []string{string(r.Type), f.Format(r.Reference), f.Format(r.Target), signed(f, r.Target-r.Reference)})
	}
	return g
}

func signed(f *mbti.PercentFormatter, v float64) string {
	if v > 0 {
		return "+" + f.Format(v)
	}
	return f.Format(v)
}

func averageBars(avgs []mbti.TypeAverage) []bar {
	bars := make([]bar, len(avgs))
	for i, a := range avgs {
		bars[i] = bar{Label: string(a.Type), Value: a.Average}
	}
	return bars
}

func topBars(ranked []mbti.RankedCountry) []bar {
	bars := make([]bar, len(ranked))
	for i, r := range ranked {
		bars[i] = bar{Label: r.Country, Value: r.Value}
	}
	return bars
}

// barLength scales v against the largest value so the longest bar fills full.
func barLength(v, largest float64, full float32) float32 {
	if largest <= 0 || v <= 0 {
		return 0
	}
	if v >= largest {
		return full
	}
	return float32(v/largest) * full
}

func largestValue(bars []bar) float64 {
	var m float64
	for _, b := range bars {
		if b.Value > m {
			m = b.Value
		}
	}
	return m
}

func summaryText(snap *mbti.Snapshot) string {
	if snap == nil {
		return "データ未読込"
	}
	common := ""
	for i, a := range snap.MostCommon {
		if i > 0 {
			common += ", "
		}
		common += string(a.Type)
	}
	text := fmt.Sprintf("国:%d / タイプ:%d / 最多:%s", len(snap.Countries), len(snap.Types), common)
	if snap.ReferenceMissing {
		text += fmt.Sprintf(" / 基準国 %s がありません", snap.Reference)
	}
	return text
}

func typeOptions(types []mbti.TypeCode) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
