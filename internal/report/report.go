// Package report renders command output: terminal tables, headings,
// localized numbers and spreadsheet exports.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/nomadcompass/internal/utils"
)

var printer = message.NewPrinter(language.English)

// Missing is printed for NaN cells.
const Missing = "-"

// Table writes rows under header as an ASCII table.
func Table(w io.Writer, header []string, rows [][]string) {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.AppendBulk(rows)
	t.Render()
}

// Heading writes a highlighted section title.
func Heading(w io.Writer, title string) {
	fmt.Fprintln(w, color.New(color.FgCyan, color.Bold).Sprint(title))
}

// Warn writes a highlighted warning line.
func Warn(w io.Writer, msg string) {
	fmt.Fprintln(w, color.YellowString("⚠ Warning: %s", msg))
}

// Int formats n with English digit grouping.
func Int(n int64) string {
	return printer.Sprintf("%d", n)
}

// Float formats v with grouping and two decimals.
func Float(v float64) string {
	if math.IsNaN(v) {
		return Missing
	}
	return printer.Sprintf("%.2f", v)
}

// Count formats a large float count as a grouped integer.
func Count(v float64) string {
	if math.IsNaN(v) {
		return Missing
	}
	return Int(int64(math.Round(v)))
}

// Sheet is one worksheet of an export.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// WriteXLSX writes sheets to path. NaN cells are left empty.
func WriteXLSX(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}
	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		name := sheetName(s.Name, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := f.SetSheetRow(name, "A1", &s.Header); err != nil {
			return err
		}
		for c := range s.Header {
			col, _ := excelize.ColumnNumberToName(c + 1)
			_ = f.SetColWidth(name, col, col, 18)
		}
		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			vals := make([]any, len(row))
			for j, v := range row {
				if fv, ok := v.(float64); ok && (math.IsNaN(fv) || math.IsInf(fv, 0)) {
					continue
				}
				vals[j] = v
			}
			if err := f.SetSheetRow(name, cell, &vals); err != nil {
				return err
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// sheetName trims to Excel's 31 character limit and removes forbidden runes.
func sheetName(name string, i int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
