// Package report exports dashboard views as an Excel workbook or CSV.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"yashubustudio/mbtidash/mbti"
)

// Kind selects a single view for CSV export.
type Kind string

const (
	KindAverage     Kind = "average"
	KindTop         Kind = "top"
	KindCompareWide Kind = "compare"
	KindCompareLong Kind = "compare-long"
)

// Kinds lists every exportable view.
var Kinds = []Kind{KindAverage, KindTop, KindCompareWide, KindCompareLong}

// ErrEmptyView is returned when the requested view was not computed.
var ErrEmptyView = errors.New("report: view is empty")

// Views holds the computed views to export.
type Views struct {
	Averages     []mbti.TypeAverage
	SelectedType mbti.TypeCode
	Top          []mbti.RankedCountry
	Comparison   *mbti.Comparison
}

// FromSnapshot copies the views out of a dashboard snapshot.
func FromSnapshot(s *mbti.Snapshot) Views {
	return Views{
		Averages:     s.Averages,
		SelectedType: s.SelectedType,
		Top:          s.Top,
		Comparison:   s.Comparison,
	}
}

type sheet struct {
	name   string
	header []string
	rows   [][]any
	// numeric lists the 1-based columns formatted with two decimals.
	numeric []int
}

func (v Views) sheets() []sheet {
	avg := sheet{name: "Average", header: []string{"Rank", "Type", "Average (%)", "Countries"}, numeric: []int{3}}
	for i, a := range v.Averages {
		avg.rows = append(avg.rows, []any{i + 1, string(a.Type), a.Average, a.Countries})
	}
	out := []sheet{avg}
	if v.SelectedType != "" {
		top := sheet{
			name:    "Top_" + string(v.SelectedType),
			header:  []string{"Rank", "Country", string(v.SelectedType) + " (%)"},
			numeric: []int{3},
		}
		for _, r := range v.Top {
			top.rows = append(top.rows, []any{r.Rank, r.Country, r.Value})
		}
		out = append(out, top)
	}
	if c := v.Comparison; c != nil {
		wide := sheet{name: "Compare", header: []string{"Type", c.Reference, c.Target}, numeric: []int{2, 3}}
		for _, r := range c.Wide() {
			wide.rows = append(wide.rows, []any{string(r.Type), r.Reference, r.Target})
		}
		long := sheet{name: "Compare_Long", header: []string{"Country", "Type", "Value (%)"}, numeric: []int{3}}
		for _, r := range c.Long() {
			long.rows = append(long.rows, []any{r.Country, string(r.Type), r.Value})
		}
		out = append(out, wide, long)
	}
	return out
}

// WriteWorkbook writes every available view to an .xlsx file, one sheet each.
func WriteWorkbook(path string, v Views) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := v.workbook()
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// WriteWorkbookTo streams the workbook to w.
func WriteWorkbookTo(w io.Writer, v Views) error {
	f, err := v.workbook()
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (v Views) workbook() (*excelize.File, error) {
	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	// Built-in number format 2 is "0.00".
	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("number style: %w", err)
	}
	for i, sh := range v.sheets() {
		if i == 0 {
			err = f.SetSheetName("Sheet1", sh.name)
		} else {
			_, err = f.NewSheet(sh.name)
		}
		if err == nil {
			err = writeSheet(f, sh, headerStyle, numberStyle)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", sh.name, err)
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, sh sheet, headerStyle, numberStyle int) error {
	for col, title := range sh.header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sh.name, cell, title); err != nil {
			return fmt.Errorf("%s header: %w", sh.name, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(sh.header), 1)
	if err := f.SetCellStyle(sh.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sh.name, err)
	}
	for r, row := range sh.rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := f.SetCellValue(sh.name, cell, value); err != nil {
				return fmt.Errorf("%s row %d: %w", sh.name, r+1, err)
			}
		}
	}
	if len(sh.rows) > 0 {
		for _, col := range sh.numeric {
			top, _ := excelize.CoordinatesToCellName(col, 2)
			bottom, _ := excelize.CoordinatesToCellName(col, len(sh.rows)+1)
			if err := f.SetCellStyle(sh.name, top, bottom, numberStyle); err != nil {
				return fmt.Errorf("%s number style: %w", sh.name, err)
			}
		}
	}
	first, _ := excelize.ColumnNumberToName(1)
	lastCol, _ := excelize.ColumnNumberToName(len(sh.header))
	return f.SetColWidth(sh.name, first, lastCol, 18)
}

// WriteCSV writes a single view as CSV with a header row.
func WriteCSV(w io.Writer, v Views, kind Kind) error {
	var target *sheet
	for _, sh := range v.sheets() {
		sh := sh
		switch {
		case kind == KindAverage && sh.name == "Average",
			kind == KindTop && v.SelectedType != "" && sh.name == "Top_"+string(v.SelectedType),
			kind == KindCompareWide && sh.name == "Compare",
			kind == KindCompareLong && sh.name == "Compare_Long":
			target = &sh
		}
	}
	if target == nil {
		if !validKind(kind) {
			return fmt.Errorf("report: unknown view %q", kind)
		}
		return fmt.Errorf("%w: %s", ErrEmptyView, kind)
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(target.header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range target.rows {
		record := make([]string, len(row))
		for j, value := range row {
			record[j] = csvValue(value)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func validKind(kind Kind) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func csvValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
