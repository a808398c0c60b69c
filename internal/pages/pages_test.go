package pages

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KaramelBytes/nomadcompass/internal/dataset"
)

type stubSource struct {
	popErr error
}

func (s stubSource) Population(context.Context) ([]dataset.PopulationRow, error) {
	if s.popErr != nil {
		return nil, s.popErr
	}
	return []dataset.PopulationRow{
		{CCA3: "CHL", Country: "Chile", Year: 2020, Population: 19e6},
		{CCA3: "CHL", Country: "Chile", Year: 2022, Population: 19.6e6},
	}, nil
}

func (stubSource) NHA(context.Context) ([]dataset.NHARow, error) {
	return []dataset.NHARow{
		{Country: "Chile", Indicator: "A", Year: 2020, Value: 1},
		{Country: "Peru", Indicator: "B", Year: 2020, Value: 2},
	}, nil
}

func (stubSource) CategoricalCPI(context.Context) ([]dataset.CPIRecord, error) {
	return []dataset.CPIRecord{
		{Country: "CHL", Category: "CP01", TimePeriod: "2020-Q1", Value: 100},
		{Country: "CHL", Category: "CP04", TimePeriod: "2020-Q1", Value: 100},
	}, nil
}

func TestCatalog(t *testing.T) {
	if len(Catalog) != 6 || Catalog[0].Title != "Home" || Catalog[5].Title != "Clustering" {
		t.Fatalf("catalog: %+v", Catalog)
	}
	if p, ok := Find("population"); !ok || p.Route != "/api/population" {
		t.Fatalf("find: %+v %v", p, ok)
	}
	if _, ok := Find("nope"); ok {
		t.Fatalf("unknown slug found")
	}
}

func TestHomeCountsAndWarnings(t *testing.T) {
	h, warnings := Home(context.Background(), stubSource{})
	if len(warnings) != 0 {
		t.Fatalf("warnings: %v", warnings)
	}
	c := h.Counts
	if c.PopulationRows != 2 || c.PopulationCountries != 1 || c.NHAIndicators != 2 || c.CPICategories != 2 || c.CPICountries != 1 {
		t.Fatalf("counts: %+v", c)
	}
	if len(h.Info) != 4 || len(h.Pages) != len(Catalog) {
		t.Fatalf("info/pages: %d %d", len(h.Info), len(h.Pages))
	}

	h, warnings = Home(context.Background(), stubSource{popErr: errors.New("file not found")})
	if h.Counts.PopulationRows != 0 || len(warnings) != 1 || !strings.Contains(warnings[0], "Population data could not be loaded") {
		t.Fatalf("degraded home: %+v %v", h.Counts, warnings)
	}
}
