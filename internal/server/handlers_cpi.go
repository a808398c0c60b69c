package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"

	"github.com/KaramelBytes/nomadcompass/internal/chart"
	"github.com/KaramelBytes/nomadcompass/internal/cpi"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/pages"
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

const (
	stabilityTop         = 10
	defaultIQRMultiplier = 5.0
	maxIQRMultiplier     = 15.0
)

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, pages.Catalog)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home, warns := pages.Home(r.Context(), s.opt.Data)
	JSON(w, http.StatusOK, home, warns...)
}

type aggregatePage struct {
	PopulationRange *[2]float64        `json:"population_range_m,omitempty"`
	SelectedRange   *[2]float64        `json:"selected_range_m,omitempty"`
	Stability       []cpi.StabilityRow `json:"stability"`
	Countries       []string           `json:"countries"`
	Country         string             `json:"country"`
	Detail          []cpi.Point        `json:"detail"`
	Scatter         annualScatter      `json:"scatter"`
	Charts          []*chart.Spec      `json:"charts"`
}

type annualScatter struct {
	Year            int             `json:"year"`
	IQRFilter       bool            `json:"iqr_filter"`
	Multiplier      float64         `json:"iqr_multiplier"`
	Removed         int             `json:"removed_rows"`
	RemovedFraction float64         `json:"removed_fraction"`
	Note            string          `json:"note,omitempty"`
	Rows            []cpi.AnnualRow `json:"rows"`
}

func (s *Server) handleAggregateCPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	iqr, err := boolParam(r, "iqr", true)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	mult, err := floatParam(r, "iqr_multiplier", defaultIQRMultiplier)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if mult < 0 || mult > maxIQRMultiplier {
		Error(w, http.StatusBadRequest, fmt.Sprintf("iqr_multiplier must be between 0 and %g", maxIQRMultiplier))
		return
	}
	year, err := intParam(r, "year", 0)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	minPop, err := floatParam(r, "min_pop", math.NaN())
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	maxPop, err := floatParam(r, "max_pop", math.NaN())
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if minPop > maxPop {
		Error(w, http.StatusBadRequest, "min_pop must not exceed max_pop")
		return
	}

	var warn warnings
	recs, err := s.opt.Data.AggregateCPI(ctx)
	recs, msg := dataset.Degrade(recs, err, "Aggregate CPI data")
	warn.add(msg)
	pts, err := cpi.Prepare(recs)
	if err != nil {
		warn.add("Aggregate CPI data could not be prepared: " + err.Error())
		pts = nil
	}
	pop, err := s.opt.Data.Population(ctx)
	pop, msg = dataset.Degrade(pop, err, "Population data")
	warn.add(msg)

	page := aggregatePage{Countries: cpi.Countries(pts)}
	joined := cpi.JoinPopulation(pts, pop)
	if lo, hi, ok := cpi.PopulationBounds(joined); ok {
		page.PopulationRange = &[2]float64{lo, hi}
		if math.IsNaN(minPop) {
			minPop = lo
		}
		if math.IsNaN(maxPop) {
			maxPop = hi
		}
		page.SelectedRange = &[2]float64{minPop, maxPop}
		page.Stability = cpi.Stability(cpi.FilterPopulation(joined, minPop, maxPop), stabilityTop)
	} else {
		if len(pts) > 0 {
			warn.add("No population figures match the CPI countries; stability ranks all countries.")
		}
		page.Stability = cpi.Stability(pts, stabilityTop)
	}
	page.Country, page.Detail = cpi.CountryDetail(pts, r.URL.Query().Get("country"))

	rows := cpi.AnnualScatter(pts, pop)
	sc := annualScatter{IQRFilter: iqr, Multiplier: mult}
	if iqr && len(rows) > 0 {
		total := len(rows)
		rows, sc.Removed = stats.IQRFilter(rows, cpi.ScatterColumns, mult)
		sc.RemovedFraction = float64(sc.Removed) / float64(total)
		if sc.Removed > 0 {
			sc.Note = fmt.Sprintf("Removed %d outlier rows (%.1f%%) from the scatter plot data using IQR filtering (Multiplier: %g).",
				sc.Removed, 100*sc.RemovedFraction, mult)
		} else {
			sc.Note = "No outliers detected or removed with the current settings."
		}
	}
	if year == 0 {
		year, _ = cpi.ScatterDefaultYear(rows)
	}
	sc.Year = year
	for _, row := range rows {
		if row.Year == year {
			sc.Rows = append(sc.Rows, row)
		}
	}
	page.Scatter = sc
	page.Charts = aggregateCharts(page)
	JSON(w, http.StatusOK, page, warn...)
}

func aggregateCharts(p aggregatePage) []*chart.Spec {
	stability := chart.Series{Name: "CPI Stability Score"}
	for _, row := range p.Stability {
		stability.Points = append(stability.Points, chart.P(row.Country, row.Score, row.Code))
	}
	line := chart.SeriesBy(p.Detail,
		func(pt cpi.Point) string { return pt.Country },
		func(pt cpi.Point) chart.Point { return chart.P(pt.Quarter.String(), pt.Value, "") })
	scatter := chart.SeriesBy(p.Scatter.Rows,
		func(row cpi.AnnualRow) string { return row.Country },
		func(row cpi.AnnualRow) chart.Point {
			pt := chart.P(row.Population, row.AvgValue, row.Country)
			pt.Size = row.Population
			return pt
		})
	return []*chart.Spec{
		chart.Bar("Top 10 Most Stable Countries by CPI YoY Change", "Country", "CPI Stability Score (Std Dev of YoY Change)",
			[]chart.Series{stability}, false),
		chart.Line("CPI Value Over Time: "+p.Country, "Quarter", "CPI Value", line),
		chart.Scatter(fmt.Sprintf("Population vs. Average Annual CPI Value (%d)", p.Scatter.Year), "Population", "Average Annual CPI Value",
			scatter, nil, nil),
	}
}

type categoricalPage struct {
	Countries      []string              `json:"countries"`
	Categories     []string              `json:"categories"`
	Selected       []string              `json:"selected_countries"`
	Stacked        []cpi.StackedRow      `json:"stacked"`
	Lines          map[string][]cpi.Line `json:"lines"`
	LatestQuarter  string                `json:"latest_quarter,omitempty"`
	LatestYoY      []cpi.YoYRow          `json:"latest_yoy"`
	HeatmapCountry string                `json:"heatmap_country"`
	Heatmap        cpi.Matrix            `json:"heatmap"`
	Charts         []*chart.Spec         `json:"charts"`
}

func (s *Server) handleCategoricalCPI(w http.ResponseWriter, r *http.Request) {
	var warn warnings
	recs, err := s.opt.Data.CategoricalCPI(r.Context())
	recs, msg := dataset.Degrade(recs, err, "Categorical CPI data")
	warn.add(msg)
	pts, err := cpi.Prepare(recs)
	if err != nil {
		warn.add("Categorical CPI data could not be prepared: " + err.Error())
		pts = nil
	}

	categories := listParam(r, "categories")
	sel, countries, err := cpi.Select(pts, listParam(r, "countries"), categories)
	if errors.Is(err, cpi.ErrTooManyCountries) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	page := categoricalPage{
		Countries:  cpi.Countries(pts),
		Categories: cpi.Categories(pts),
		Selected:   countries,
		Stacked:    cpi.StackedByTime(sel),
		Lines:      map[string][]cpi.Line{},
	}
	for _, cat := range cpi.Categories(sel) {
		page.Lines[cat] = cpi.CategoryLines(sel, cat)
	}
	latest, yoy := cpi.LatestYoY(sel)
	if !latest.IsZero() {
		page.LatestQuarter = latest.String()
	}
	page.LatestYoY = yoy

	hc := r.URL.Query().Get("heatmap_country")
	if hc == "" && len(countries) > 0 {
		hc = countries[0]
	}
	heat, heatCountries, _ := cpi.Select(pts, []string{hc}, categories)
	if len(heatCountries) > 0 {
		hc = heatCountries[0]
	}
	page.HeatmapCountry = hc
	page.Heatmap = cpi.Heatmap(heat, hc)
	page.Charts = categoricalCharts(page)
	JSON(w, http.StatusOK, page, warn...)
}

func categoricalCharts(p categoricalPage) []*chart.Spec {
	out := []*chart.Spec{
		chart.Bar("CPI by Category Over Time", "Quarter", "CPI Value",
			chart.SeriesBy(p.Stacked,
				func(row cpi.StackedRow) string { return row.Category + " (" + row.Country + ")" },
				func(row cpi.StackedRow) chart.Point { return chart.P(row.Quarter, row.Value, row.Country) }),
			true),
	}
	cats := make([]string, 0, len(p.Lines))
	for cat := range p.Lines {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		var series []chart.Series
		for _, l := range p.Lines[cat] {
			s := chart.Series{Name: l.Country}
			for _, tv := range l.Points {
				s.Points = append(s.Points, chart.P(tv.Quarter, tv.Value, ""))
			}
			series = append(series, s)
		}
		out = append(out, chart.Line(cat+" CPI Over Time", "Quarter", "CPI Value", series))
	}
	out = append(out, chart.Bar("Year-over-Year CPI Change by Category ("+p.LatestQuarter+")", "Category", "YoY Change (%)",
		chart.SeriesBy(p.LatestYoY,
			func(row cpi.YoYRow) string { return row.Country },
			func(row cpi.YoYRow) chart.Point { return chart.P(row.Category, row.YoY, "") }),
		false))
	if len(p.Heatmap.Rows) > 0 {
		out = append(out, chart.Heatmap("CPI Heatmap: "+p.HeatmapCountry, "Category", "Quarter",
			p.Heatmap.Rows, p.Heatmap.Cols, p.Heatmap.Values))
	}
	return out
}
