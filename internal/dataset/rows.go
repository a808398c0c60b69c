package dataset

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/KaramelBytes/nomadcompass/internal/country"
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

// Source column names.
const (
	ColRank        = "Rank"
	ColCCA3        = "CCA3"
	ColTerritory   = "Country/Territory"
	ColArea        = "Area (km²)"
	ColDensity     = "Density (per km²)"
	ColGrowthRate  = "Growth Rate"
	ColWorldShare  = "World Population Percentage"
	ColYear        = "Year"
	ColPopulation  = "Population"
	ColCountries   = "Countries"
	ColIndicators  = "Indicators"
	ColValue       = "Value"
	ColValuePPP    = "Value_PPP"
	ColCountryCode = "COUNTRY"
	ColCOICOP      = "COICOP_1999"
	ColTimePeriod  = "TIME_PERIOD"
	ColObsValue    = "OBS_VALUE"
)

// PopulationRow is one country-year of the world population table.
// Optional measures are NaN when absent.
type PopulationRow struct {
	Rank       float64
	CCA3       string
	Country    string
	Year       int
	Population float64
	Area       float64
	Density    float64
	GrowthRate float64
	WorldShare float64
}

func (r PopulationRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Rank       *float64 `json:"rank"`
		CCA3       string   `json:"cca3"`
		Country    string   `json:"country"`
		Year       int      `json:"year"`
		Population *float64 `json:"population"`
		Area       *float64 `json:"area_km2"`
		Density    *float64 `json:"density_per_km2"`
		GrowthRate *float64 `json:"growth_rate"`
		WorldShare *float64 `json:"world_population_pct"`
	}{
		stats.Nullable(r.Rank), r.CCA3, r.Country, r.Year, stats.Nullable(r.Population),
		stats.Nullable(r.Area), stats.Nullable(r.Density), stats.Nullable(r.GrowthRate), stats.Nullable(r.WorldShare),
	})
}

// NHARow is one country-indicator-year of the health accounts table.
type NHARow struct {
	Country   string
	Code      string
	Indicator string
	Year      int
	Value     float64
	ValuePPP  float64
}

func (r NHARow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Country   string   `json:"country"`
		Code      string   `json:"code"`
		Indicator string   `json:"indicator"`
		Year      int      `json:"year"`
		Value     *float64 `json:"value"`
		ValuePPP  *float64 `json:"value_ppp"`
	}{r.Country, r.Code, r.Indicator, r.Year, stats.Nullable(r.Value), stats.Nullable(r.ValuePPP)})
}

// CPIRecord is one raw CPI observation: an alpha-3 country, a COICOP code,
// an unparsed period and a numeric value.
type CPIRecord struct {
	Country    string  `json:"country"`
	Category   string  `json:"category"`
	TimePeriod string  `json:"time_period"`
	Value      float64 `json:"value"`
}

// populationRows converts a frame, dropping rows without a country, year or
// population.
func populationRows(df dataframe.DataFrame) ([]PopulationRow, error) {
	if err := requireColumns(df, ColTerritory, ColYear, ColPopulation); err != nil {
		return nil, err
	}
	names := stringCol(df, ColTerritory)
	codes := stringCol(df, ColCCA3)
	years := floatCol(df, ColYear)
	pops := floatCol(df, ColPopulation)
	ranks := floatCol(df, ColRank)
	areas := floatCol(df, ColArea)
	dens := floatCol(df, ColDensity)
	growth := floatCol(df, ColGrowthRate)
	share := floatCol(df, ColWorldShare)

	out := make([]PopulationRow, 0, len(names))
	for i, name := range names {
		if name == "" || math.IsNaN(years[i]) || math.IsNaN(pops[i]) {
			continue
		}
		code := ""
		if codes != nil {
			code = strings.ToUpper(codes[i])
		}
		if code == "" {
			code = country.Key(name)
		}
		out = append(out, PopulationRow{
			Rank:       ranks[i],
			CCA3:       code,
			Country:    name,
			Year:       int(years[i]),
			Population: pops[i],
			Area:       areas[i],
			Density:    dens[i],
			GrowthRate: growth[i],
			WorldShare: share[i],
		})
	}
	return out, nil
}

// nhaRows converts a frame, dropping rows whose Value is not numeric.
func nhaRows(df dataframe.DataFrame) ([]NHARow, error) {
	if err := requireColumns(df, ColCountries, ColIndicators, ColYear, ColValue); err != nil {
		return nil, err
	}
	names := stringCol(df, ColCountries)
	inds := stringCol(df, ColIndicators)
	years := floatCol(df, ColYear)
	vals := floatCol(df, ColValue)
	ppp := floatCol(df, ColValuePPP)

	keys := map[string]string{}
	out := make([]NHARow, 0, len(names))
	for i, name := range names {
		if name == "" || math.IsNaN(vals[i]) || math.IsNaN(years[i]) {
			continue
		}
		code, ok := keys[name]
		if !ok {
			code = country.Key(name)
			keys[name] = code
		}
		out = append(out, NHARow{
			Country:   name,
			Code:      code,
			Indicator: inds[i],
			Year:      int(years[i]),
			Value:     vals[i],
			ValuePPP:  ppp[i],
		})
	}
	return out, nil
}

// cpiRecords converts a CPI snapshot, dropping non-numeric observations.
// Snapshots without a COICOP column are aggregate series.
func cpiRecords(df dataframe.DataFrame) ([]CPIRecord, error) {
	if err := requireColumns(df, ColCountryCode, ColTimePeriod, ColObsValue); err != nil {
		return nil, err
	}
	codes := stringCol(df, ColCountryCode)
	cats := stringCol(df, ColCOICOP)
	periods := stringCol(df, ColTimePeriod)
	vals := floatCol(df, ColObsValue)

	out := make([]CPIRecord, 0, len(codes))
	for i, code := range codes {
		if math.IsNaN(vals[i]) {
			continue
		}
		cat := "_T"
		if cats != nil && cats[i] != "" {
			cat = cats[i]
		}
		out = append(out, CPIRecord{Country: code, Category: cat, TimePeriod: periods[i], Value: vals[i]})
	}
	return out, nil
}
