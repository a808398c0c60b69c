// Package pages holds the dashboard's page catalog and the home page summary.
package pages

import (
	"context"

	"github.com/KaramelBytes/nomadcompass/internal/cpi"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/nha"
	"github.com/KaramelBytes/nomadcompass/internal/population"
)

// Page is one entry of the sidebar.
type Page struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Route       string `json:"route"`
	Description string `json:"description"`
}

// Catalog lists the pages in sidebar order.
var Catalog = []Page{
	{"home", "Home", "/api/home", "What each dataset contains and how much of it is loaded."},
	{"aggregate-cpi", "Aggregate CPI", "/api/cpi/aggregate", "Overall Consumer Price Index for all countries, quarterly."},
	{"categorical-cpi", "Categorical CPI", "/api/cpi/categorical", "Consumer Price Index broken down by expenditure category, quarterly."},
	{"nha-indicators", "NHA Indicators", "/api/nha", "National Health Accounts indicators by country and year."},
	{"population", "Population", "/api/population", "World population, density, growth and projections."},
	{"clustering", "Clustering", "/api/cluster", "K-Means segmentation of countries by CPI, health spending and demographics."},
}

// Find returns the page with the given slug.
func Find(slug string) (Page, bool) {
	for _, p := range Catalog {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}

// Info is a short description of one data category.
type Info struct {
	Category string `json:"category"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
}

var info = []Info{
	{
		Category: "Aggregate CPI",
		Summary:  "The Consumer Price Index measures the average change over time in the prices consumers pay for a basket of goods and services. Rising CPI signals inflation; a 3% rise means the same basket costs 3% more than a year earlier.",
		Source:   "IMF SDMX API",
	},
	{
		Category: "Categorical CPI",
		Summary:  "CPI split by COICOP purpose: food, clothing, housing, health, transport, recreation, restaurants and miscellaneous goods. Categories move at different speeds, so the split shows where prices are rising.",
		Source:   "IMF SDMX API",
	},
	{
		Category: "NHA Indicators",
		Summary:  "National Health Accounts describe how much a country spends on health and who pays. Out-of-pocket spending per capita is PPP adjusted so it compares across countries.",
		Source:   "WHO Global Health Expenditure Database",
	},
	{
		Category: "Population",
		Summary:  "Total population, density per square kilometer, growth rate and share of world population per country and year. Some figures are estimates rather than counts.",
		Source:   "World population dataset",
	},
}

// Source is the data the home page summarizes.
type Source interface {
	Population(ctx context.Context) ([]dataset.PopulationRow, error)
	NHA(ctx context.Context) ([]dataset.NHARow, error)
	CategoricalCPI(ctx context.Context) ([]dataset.CPIRecord, error)
}

// Counts are the loaded sizes of each dataset.
type Counts struct {
	PopulationRows      int `json:"population_rows"`
	PopulationCountries int `json:"population_countries"`
	NHARows             int `json:"nha_rows"`
	NHACountries        int `json:"nha_countries"`
	NHAIndicators       int `json:"nha_indicators"`
	CPIRows             int `json:"categorical_cpi_rows"`
	CPICountries        int `json:"categorical_cpi_countries"`
	CPICategories       int `json:"categorical_cpi_categories"`
}

// HomeData is the home page payload.
type HomeData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Pages    []Page `json:"pages"`
	Info     []Info `json:"info"`
	Counts   Counts `json:"counts"`
	Note     string `json:"note"`
}

// Home loads each dataset and reports its size. A dataset that fails to load
// counts as empty and adds a warning.
func Home(ctx context.Context, src Source) (HomeData, []string) {
	h := HomeData{
		Title:    "Welcome to Nomad Dashboard",
		Subtitle: "World Economic, and Health Data Insights",
		Pages:    Catalog,
		Info:     info,
		Note:     "CPI data is fetched using the IMF API. Healthcare data was downloaded from WHO's online sources. Population data was downloaded from a Kaggle dataset.",
	}
	var warnings []string
	warn := func(w string) {
		if w != "" {
			warnings = append(warnings, w)
		}
	}

	popRows, err := src.Population(ctx)
	popRows, w := dataset.Degrade(popRows, err, "Population data")
	warn(w)
	h.Counts.PopulationRows = len(popRows)
	h.Counts.PopulationCountries = len(population.Countries(popRows))

	nhaRows, err := src.NHA(ctx)
	nhaRows, w = dataset.Degrade(nhaRows, err, "NHA data")
	warn(w)
	h.Counts.NHARows = len(nhaRows)
	h.Counts.NHACountries = len(nha.Countries(nhaRows))
	h.Counts.NHAIndicators = len(nha.Indicators(nhaRows))

	recs, err := src.CategoricalCPI(ctx)
	recs, w = dataset.Degrade(recs, err, "Categorical CPI data")
	warn(w)
	h.Counts.CPIRows = len(recs)
	if pts, err := cpi.Prepare(recs); err == nil {
		h.Counts.CPICountries = len(cpi.Countries(pts))
		h.Counts.CPICategories = len(cpi.Categories(pts))
	} else {
		warn("Categorical CPI data could not be prepared: " + err.Error())
	}
	return h, warnings
}
