package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/KaramelBytes/nomadcompass/internal/chart"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/nha"
)

type nhaPage struct {
	Indicators []string         `json:"indicators"`
	Countries  []string         `json:"countries"`
	Years      []int            `json:"years"`
	Indicator  string           `json:"indicator"`
	Year       int              `json:"year"`
	Trend      []dataset.NHARow `json:"trend"`
	Scatter    nha.Scatter      `json:"scatter"`
	ByCountry  []dataset.NHARow `json:"by_country"`
	Breakdown  nha.Breakdown    `json:"breakdown"`
	Order      string           `json:"order"`
	Ranked     []dataset.NHARow `json:"ranked"`
	Charts     []*chart.Spec    `json:"charts"`
}

func (s *Server) handleNHA(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, err := intParam(r, "n", 10)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	order := strings.ToLower(strings.TrimSpace(q.Get("order")))
	switch order {
	case "":
		order = "top"
	case "top", "bottom":
	default:
		Error(w, http.StatusBadRequest, fmt.Sprintf("invalid order: %q (use top or bottom)", order))
		return
	}
	year, err := intParam(r, "year", 0)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var warn warnings
	rows, err := s.opt.Data.NHA(r.Context())
	rows, msg := dataset.Degrade(rows, err, "NHA data")
	warn.add(msg)

	page := nhaPage{
		Indicators: nha.Indicators(rows),
		Countries:  nha.Countries(rows),
		Years:      nha.Years(rows),
		Order:      order,
	}
	if len(rows) == 0 {
		JSON(w, http.StatusOK, page, warn...)
		return
	}

	pick := func(name, preferred string) (string, error) {
		v := strings.TrimSpace(q.Get(name))
		if v == "" {
			return nha.Pick(page.Indicators, preferred), nil
		}
		return v, nha.Validate(rows, v)
	}
	if page.Indicator, err = pick("indicator", nha.DefaultIndicator); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	x, err := pick("x", nha.DefaultIndicator)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	y, err := pick("y", nha.DefaultYIndicator)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	breakdown := listParam(r, "breakdown")
	for _, ind := range breakdown {
		if err := nha.Validate(rows, ind); err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if year == 0 {
		year = page.Years[len(page.Years)-1]
	}
	page.Year = year

	trendCountries := listParam(r, "countries")
	scatterCountries := trendCountries
	if len(trendCountries) == 0 {
		trendCountries = nha.FirstN(page.Countries, 5)
		scatterCountries = nha.FirstN(page.Countries, 3)
	}
	page.Trend = nha.Trend(rows, page.Indicator, trendCountries)
	page.Scatter = nha.BuildScatter(rows, x, y, scatterCountries)
	page.ByCountry = nha.ByCountry(rows, page.Indicator, year)
	page.Breakdown = nha.BuildBreakdown(rows, q.Get("breakdown_country"), breakdown)
	page.Ranked = nha.TopBottom(rows, page.Indicator, year, n, order == "top")
	if page.Breakdown.Warning != "" {
		warn.add(page.Breakdown.Warning)
	}
	page.Charts = nhaCharts(page)
	JSON(w, http.StatusOK, page, warn...)
}

func nhaCharts(p nhaPage) []*chart.Spec {
	byYear := func(row dataset.NHARow) chart.Point { return chart.P(row.Year, row.Value, "") }
	byCountry := func(row dataset.NHARow) chart.Point { return chart.P(row.Country, row.Value, row.Code) }
	country := func(row dataset.NHARow) string { return row.Country }
	single := func(row dataset.NHARow) string { return p.Indicator }

	scatter := chart.Scatter(p.Scatter.XIndicator+" vs. "+p.Scatter.YIndicator, p.Scatter.XIndicator, p.Scatter.YIndicator,
		chart.SeriesBy(p.Scatter.Rows,
			func(row nha.ScatterRow) string { return row.Country },
			func(row nha.ScatterRow) chart.Point { return chart.P(row.X, row.Y, strconv.Itoa(row.Year)) }),
		chart.Range(p.Scatter.RangeX), chart.Range(p.Scatter.RangeY))

	title := "Top"
	if p.Order == "bottom" {
		title = "Bottom"
	}
	return []*chart.Spec{
		chart.Line(p.Indicator+" Over Time", "Year", p.Indicator, chart.SeriesBy(p.Trend, country, byYear)),
		scatter,
		chart.Bar(fmt.Sprintf("%s by Country (%d)", p.Indicator, p.Year), "Country", p.Indicator,
			chart.SeriesBy(p.ByCountry, single, byCountry), false),
		chart.Bar("Health Expenditure Breakdown: "+p.Breakdown.Country, "Year", "Value",
			chart.SeriesBy(p.Breakdown.Rows, func(row dataset.NHARow) string { return row.Indicator }, byYear), true),
		chart.Bar(fmt.Sprintf("%s %d Countries: %s (%d)", title, len(p.Ranked), p.Indicator, p.Year), "Country", p.Indicator,
			chart.SeriesBy(p.Ranked, single, byCountry), false),
	}
}
