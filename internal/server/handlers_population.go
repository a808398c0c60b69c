package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/KaramelBytes/nomadcompass/internal/chart"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/population"
)

// Projection years used when the request names none.
var (
	defaultFutureYears   = []int{2030, 2040, 2050}
	defaultBackcastYears = []int{1950, 1960}
)

type populationPage struct {
	Excluded            []string                `json:"excluded,omitempty"`
	TitleSuffix         string                  `json:"title_suffix,omitempty"`
	Countries           []string                `json:"countries"`
	Years               []int                   `json:"years"`
	Year                int                     `json:"year"`
	Trends              []population.Row        `json:"trends"`
	TopYear             int                     `json:"top_year"`
	Top                 []population.Row        `json:"top"`
	Density             population.Density      `json:"density"`
	Threshold           float64                 `json:"share_threshold"`
	Share               []population.ShareSlice `json:"world_share"`
	Growth              []population.Row        `json:"growth"`
	PopulationVsDensity []population.Row        `json:"population_vs_density"`
	PopulationMap       []population.MapCell    `json:"population_map"`
	DensityMap          []population.MapCell    `json:"log_density_map"`
	Charts              []*chart.Spec           `json:"charts"`
}

func (s *Server) handlePopulation(w http.ResponseWriter, r *http.Request) {
	top, err := intParam(r, "top", 10)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	removeTop, err := intParam(r, "remove_outliers", 0)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if removeTop < 0 {
		Error(w, http.StatusBadRequest, "remove_outliers must not be negative")
		return
	}
	threshold, err := floatParam(r, "threshold", 1.0)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if threshold < 0 {
		Error(w, http.StatusBadRequest, "threshold must not be negative")
		return
	}
	year, err := intParam(r, "year", 0)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var warn warnings
	rows, err := s.opt.Data.Population(r.Context())
	rows, msg := dataset.Degrade(rows, err, "Population data")
	warn.add(msg)

	page := populationPage{Excluded: listParam(r, "exclude"), Threshold: threshold}
	rows, page.TitleSuffix = population.Exclude(rows, page.Excluded)
	page.Countries = population.Countries(rows)
	page.Years = population.Years(rows)
	if year == 0 {
		year, _ = population.LatestYear(rows)
	}
	page.Year = year

	page.Trends = population.Trends(rows, listParam(r, "countries"))
	page.TopYear, page.Top = population.TopN(rows, top)
	page.Density, err = population.DensityVsArea(rows, year, removeTop)
	if errors.Is(err, population.ErrTooManyOutliers) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	page.Share = population.WorldShare(rows, year, threshold)
	page.Growth = population.GrowthRates(rows, year)
	page.PopulationVsDensity = population.PopulationVsDensity(rows, year)
	page.PopulationMap, page.DensityMap = population.Choropleth(rows, year)
	page.Charts = populationCharts(page)
	JSON(w, http.StatusOK, page, warn...)
}

func populationCharts(p populationPage) []*chart.Spec {
	sfx := p.TitleSuffix
	name := func(row population.Row) string { return row.Country }
	all := func(label string) func(population.Row) string {
		return func(population.Row) string { return label }
	}
	mapPoints := func(cells []population.MapCell) []chart.Point {
		out := make([]chart.Point, len(cells))
		for i, c := range cells {
			out[i] = chart.P(c.CCA3, c.Value, c.Country)
		}
		return out
	}

	density := chart.Scatter(fmt.Sprintf("Population Density vs. Area (%d)%s%s", p.Density.Year, p.Density.TitleSuffix, sfx),
		"Area (km²)", "Density (per km²)",
		chart.SeriesBy(p.Density.Rows, name, func(row population.Row) chart.Point {
			pt := chart.P(row.Area, row.Density, row.Country)
			pt.Size = row.Population
			return pt
		}),
		chart.Range(p.Density.RangeX), chart.Range(p.Density.RangeY))
	density.LogX = p.Density.LogX

	share := make([]chart.Point, len(p.Share))
	for i, sl := range p.Share {
		share[i] = chart.P(sl.Country, sl.Share, sl.CCA3)
	}

	popDensity := chart.Scatter(fmt.Sprintf("Population vs. Density (%d)%s", p.Year, sfx), "Population", "Density (per km²)",
		chart.SeriesBy(p.PopulationVsDensity, name, func(row population.Row) chart.Point {
			return chart.P(row.Population, row.Density, row.Country)
		}), nil, nil)
	popDensity.LogX, popDensity.LogY = true, true

	return []*chart.Spec{
		chart.Line("Population Trends"+sfx, "Year", "Population",
			chart.SeriesBy(p.Trends, name, func(row population.Row) chart.Point { return chart.P(row.Year, row.Population, "") })),
		chart.Bar(fmt.Sprintf("Top %d Countries by Population (%d)%s", len(p.Top), p.TopYear, sfx), "Country", "Population",
			chart.SeriesBy(p.Top, all("Population"), func(row population.Row) chart.Point {
				return chart.P(row.Country, row.Population, row.CCA3)
			}), false),
		density,
		chart.Pie(fmt.Sprintf("World Population Share (%d)%s", p.Year, sfx), share),
		chart.Bar(fmt.Sprintf("Population Growth Rate (%d)%s", p.Year, sfx), "Country", "Growth Rate",
			chart.SeriesBy(p.Growth, all("Growth Rate"), func(row population.Row) chart.Point {
				return chart.P(row.Country, row.GrowthRate, row.CCA3)
			}), false),
		popDensity,
		chart.Choropleth(fmt.Sprintf("World Population (%d)%s", p.Year, sfx), "Population", mapPoints(p.PopulationMap)),
		chart.Choropleth(fmt.Sprintf("Population Density, log10 (%d)%s", p.Year, sfx), "log10 Density", mapPoints(p.DensityMap)),
	}
}

type projectionPage struct {
	Countries []string                  `json:"countries"`
	Future    []int                     `json:"future_years"`
	Backcast  []int                     `json:"backcast_years"`
	Rows      []population.ProjectedRow `json:"rows"`
	Charts    []*chart.Spec             `json:"charts"`
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	future, err := intListParam(r, "future", defaultFutureYears)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	backcast, err := intListParam(r, "backcast", defaultBackcastYears)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var warn warnings
	rows, err := s.opt.Data.Population(r.Context())
	rows, msg := dataset.Degrade(rows, err, "Population data")
	warn.add(msg)

	sel := population.Trends(rows, listParam(r, "countries"))
	page := projectionPage{
		Countries: population.Countries(sel),
		Future:    future,
		Backcast:  backcast,
		Rows:      population.Project(sel, future, backcast),
	}
	page.Charts = []*chart.Spec{
		chart.Line("Population Projections", "Year", "Population",
			chart.SeriesBy(page.Rows,
				func(p population.ProjectedRow) string { return p.Country },
				func(p population.ProjectedRow) chart.Point { return chart.P(p.Year, p.Population, p.Type) })),
	}
	JSON(w, http.StatusOK, page, warn...)
}
