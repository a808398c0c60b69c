package analysis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const populationCSV = `Rank,CCA3,Country/Territory,Year,Population,Area (km²),Notes
1,CHN,China,2022,"1,425,887,337",9706961,
2,IND,India,2022,"1,417,173,173",3287590,
3,USA,United States,2022,"338,289,857",9372610,
4,IDN,Indonesia,2022,"275,501,339",1904569,
5,PAK,Pakistan,2022,"235,824,862",881912,
6,NGA,Nigeria,2022,"218,541,212",923768,
7,BRA,Brazil,2022,"215,313,498",8515767,
8,BGD,Bangladesh,2022,"171,186,372",147570,
9,RUS,Russia,2022,"144,713,314",17098242,
10,MEX,Mexico,2022,"127,504,125",1964375,
`

func TestProfileFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pop.csv")
	if err := os.WriteFile(path, []byte(populationCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	rep, err := ProfileFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if rep.Name != "pop.csv" || rep.Rows != 10 || len(rep.Cols) != 7 {
		t.Fatalf("shape: %+v", rep)
	}
	byName := map[string]ColumnSummary{}
	for _, c := range rep.Cols {
		byName[c.Name] = c
	}
	pop := byName["Population"]
	if pop.Kind != KindNumeric || pop.Numeric == nil || pop.Numeric.Max != 1425887337 {
		t.Fatalf("population column: %+v", pop)
	}
	if pop.Numeric.Median != (218541212+235824862)/2.0 {
		t.Fatalf("median: %v", pop.Numeric.Median)
	}
	area := byName["Area"]
	if area.Unit != "km²" || area.Kind != KindNumeric {
		t.Fatalf("area units: %+v", area)
	}
	if cca3 := byName["CCA3"]; cca3.Kind != KindCategorical || cca3.Unique != 10 || len(cca3.TopValues) != 5 {
		t.Fatalf("cca3: %+v", cca3)
	}
	if notes := byName["Notes"]; notes.Kind != KindEmpty || len(rep.Warnings) != 1 {
		t.Fatalf("notes: %+v warnings=%v", notes, rep.Warnings)
	}
	md := rep.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "File: pop.csv", "- Area [km²]: numeric", "[SAMPLE ROWS]", "[WARNINGS]"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestProfileFileXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nha.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"Countries", "Indicators", "Year", "Value"},
		{"Chile", "CHE per capita", 2020, 1500.5},
		{"Chile", "CHE per capita", 2021, 1600},
		{"Peru", "CHE per capita", 2021, 700},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	rep, err := ProfileFile(path, Options{})
	if err != nil {
		t.Fatalf("profile xlsx: %v", err)
	}
	if rep.Rows != 3 || rep.Cols[3].Numeric == nil || rep.Cols[3].Numeric.Count != 3 {
		t.Fatalf("xlsx report: %+v", rep)
	}
	if rep.Cols[0].TopValues[0].Value != "Chile" || rep.Cols[0].TopValues[0].Count != 2 {
		t.Fatalf("top values: %+v", rep.Cols[0].TopValues)
	}
	if len(rep.Samples) != 0 {
		t.Fatalf("samples disabled by zero options")
	}
}

func TestRobustOutliers(t *testing.T) {
	vals := []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50}
	if n := robustOutliers(vals, 3.5); n != 1 {
		t.Fatalf("outliers = %d", n)
	}
	if n := robustOutliers([]float64{1, 1, 1}, 3.5); n != 0 {
		t.Fatalf("zero MAD has no outliers")
	}
}
