package dataset

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/nomadcompass/internal/sdmx"
)

const populationCSV = `Rank,CCA3,Country/Territory,Area (km²),Density (per km²),Growth Rate,World Population Percentage,Year,Population
1,CHN,China,9706961,146.8933,1.0,17.88,2022,1425887337
2,IND,India,3287590,431.0675,1.0068,17.77,2022,1417173173
3,USA,United States,9372610,36.0935,1.0038,4.24,2022,338289857
4,ABW,Aruba,180,591.3,,0.0,2022,106445
5,XXX,Nowhere,,,,,2022,
6,,Germany,357114,233.0,0.9995,1.05,2022,"83,369,843"
`

const nhaCSV = `Countries,Indicators,Year,Value,Value_PPP
Germany,Current health expenditure (CHE) per capita,2020,5000,5100.5
Germany,Current health expenditure (CHE) per capita,2021,,
Atlantis,Current health expenditure (CHE) per capita,2021,12,
`

const categoricalCSV = `COUNTRY,COICOP_1999,TIME_PERIOD,OBS_VALUE
USA,CP01,2020-Q1,101.2
USA,CP01,2020-Q2,n/a
DEU,CP04,2020Q1,99.5
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoaderReadsAndCoerces(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(Options{Sources: Sources{
		Population:     writeFile(t, dir, "pop.csv", populationCSV),
		NHA:            writeFile(t, dir, "nha.csv", nhaCSV),
		CategoricalCPI: writeFile(t, dir, "cpi.csv", categoricalCSV),
	}})
	ctx := context.Background()

	pop, err := l.Population(ctx)
	if err != nil {
		t.Fatalf("population: %v", err)
	}
	if len(pop) != 5 {
		t.Fatalf("expected 5 population rows (row without population dropped), got %d", len(pop))
	}
	if !math.IsNaN(pop[3].GrowthRate) || pop[3].Density != 591.3 {
		t.Fatalf("Aruba coercion: %+v", pop[3])
	}
	if pop[4].CCA3 != "DEU" || pop[4].Population != 83369843 {
		t.Fatalf("Germany code fallback / thousands separator: %+v", pop[4])
	}

	nha, err := l.NHA(ctx)
	if err != nil {
		t.Fatalf("nha: %v", err)
	}
	if len(nha) != 2 {
		t.Fatalf("expected 2 NHA rows with a value, got %d", len(nha))
	}
	if nha[0].Code != "DEU" || nha[0].ValuePPP != 5100.5 {
		t.Fatalf("unexpected NHA row %+v", nha[0])
	}
	if nha[1].Code != "Atlantis" || !math.IsNaN(nha[1].ValuePPP) {
		t.Fatalf("unresolvable country should key by name: %+v", nha[1])
	}

	cpi, err := l.CategoricalCPI(ctx)
	if err != nil {
		t.Fatalf("cpi: %v", err)
	}
	if len(cpi) != 2 || cpi[1].Category != "CP04" {
		t.Fatalf("unexpected CPI records %+v", cpi)
	}

	// Second read is served from cache and identical.
	again, err := l.Population(ctx)
	if err != nil || len(again) != len(pop) || !math.IsNaN(again[3].GrowthRate) {
		t.Fatalf("cached population mismatch: %v %+v", err, again)
	}
}

func TestLoaderErrorsDegrade(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(Options{Sources: Sources{
		Population: filepath.Join(dir, "absent.csv"),
		NHA:        writeFile(t, dir, "bad.csv", "Countries,Year\nX,2020\n"),
	}})
	rows, err := l.Population(context.Background())
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	rows, warn := Degrade(rows, err, "Population data")
	if rows != nil || !strings.Contains(warn, "Population data could not be loaded") {
		t.Fatalf("unexpected degrade result %v %q", rows, warn)
	}
	if _, err := l.NHA(context.Background()); !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	if _, err := l.AggregateCPI(context.Background()); err == nil {
		t.Fatalf("expected error without snapshot or client")
	}
}

func TestReadFrameXLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"Countries", "Indicators", "Year", "Value"},
		{"France", "Out-of-pocket (OOP) expenditure per capita", 2021, 800.5},
		{"France", "Out-of-pocket (OOP) expenditure per capita", 2022},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "nha.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	l := NewLoader(Options{Sources: Sources{NHA: path}})
	nha, err := l.NHA(context.Background())
	if err != nil {
		t.Fatalf("nha xlsx: %v", err)
	}
	if len(nha) != 1 || nha[0].Value != 800.5 || nha[0].Code != "FRA" {
		t.Fatalf("unexpected rows %+v", nha)
	}
}

type fakeFetcher struct {
	obs   []sdmx.Observation
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, sdmx.Query) ([]sdmx.Observation, error) {
	f.calls++
	return f.obs, nil
}

func (f *fakeFetcher) URL(q sdmx.Query) string { return q.Dataflow + "/" + q.Key }

func TestAggregateFromRemoteAndSnapshot(t *testing.T) {
	ff := &fakeFetcher{obs: []sdmx.Observation{
		{Dims: map[string]string{"COUNTRY": "USA", "TIME_PERIOD": "2020-Q1", "OBS_VALUE": "100", "FREQUENCY": "Q"}},
		{Dims: map[string]string{"COUNTRY": "USA", "TIME_PERIOD": "2020-Q2", "OBS_VALUE": "", "FREQUENCY": "Q"}},
	}}
	l := NewLoader(Options{Fetcher: ff, AggregateQuery: sdmx.Query{Dataflow: "IMF.STA,CPI", Key: ".CPI._T.IX.Q"}})
	ctx := context.Background()
	recs, err := l.AggregateCPI(ctx)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(recs) != 1 || recs[0].Category != "_T" {
		t.Fatalf("unexpected records %+v", recs)
	}
	if _, err := l.AggregateCPI(ctx); err != nil || ff.calls != 1 {
		t.Fatalf("second call should hit cache: calls=%d err=%v", ff.calls, err)
	}

	obs, err := l.FetchObservations(ctx, "aggregate")
	if err != nil {
		t.Fatalf("fetch observations: %v", err)
	}
	path := filepath.Join(t.TempDir(), "agg.csv")
	if err := WriteSnapshot(path, obs); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	b, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(b), "COUNTRY,TIME_PERIOD,OBS_VALUE\n") {
		t.Fatalf("constant FREQUENCY should be dropped and header ordered: %q", b)
	}

	snap := NewLoader(Options{Sources: Sources{AggregateCPI: path}})
	recs, err = snap.AggregateCPI(ctx)
	if err != nil || len(recs) != 1 || recs[0].Value != 100 {
		t.Fatalf("snapshot reload: %v %+v", err, recs)
	}
	if _, err := l.FetchObservations(ctx, "monthly"); err == nil {
		t.Fatalf("expected error for unknown series")
	}
}
