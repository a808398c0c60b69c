package report

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestTableAndNumbers(t *testing.T) {
	var buf bytes.Buffer
	Table(&buf, []string{"Country", "Population"}, [][]string{{"India", Count(1417e6)}, {"Monaco", Count(math.NaN())}})
	out := buf.String()
	if !strings.Contains(out, "1,417,000,000") || !strings.Contains(out, "Monaco") {
		t.Fatalf("table output:\n%s", out)
	}
	if Float(1234.5) != "1,234.50" || Float(math.NaN()) != Missing {
		t.Fatalf("float: %q", Float(1234.5))
	}
	buf.Reset()
	Heading(&buf, "Top countries")
	if !strings.Contains(buf.String(), "Top countries") {
		t.Fatalf("heading: %q", buf.String())
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "clusters.xlsx")
	err := WriteXLSX(path, []Sheet{
		{Name: "Profiles", Header: []string{"Cluster", "Mean"}, Rows: [][]any{{0, 1.5}, {1, math.NaN()}}},
		{Name: "Members/All", Header: []string{"Country"}, Rows: [][]any{{"Chile"}}},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[1] != "Members_All" {
		t.Fatalf("sheets: %v", sheets)
	}
	if v, _ := f.GetCellValue("Profiles", "B2"); v != "1.5" {
		t.Fatalf("B2 = %q", v)
	}
	if v, _ := f.GetCellValue("Profiles", "B3"); v != "" {
		t.Fatalf("NaN should be blank, got %q", v)
	}
	if err := WriteXLSX(path, nil); err == nil {
		t.Fatalf("expected error for no sheets")
	}
}
