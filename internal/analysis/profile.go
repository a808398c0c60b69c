// Package analysis profiles tabular source files so their schema and value
// ranges can be checked before they feed the dashboard.
package analysis

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
	KindEmpty       = "empty"
)

// Options controls profiling.
type Options struct {
	// TopValues is the number of categories listed per categorical column.
	TopValues int
	// OutlierThreshold counts |robust z| above it; 0 disables outlier counts.
	OutlierThreshold float64
	// SampleRows is the number of leading rows kept as examples.
	SampleRows int
}

// DefaultOptions returns the settings used by the describe command.
func DefaultOptions() Options {
	return Options{TopValues: 5, OutlierThreshold: 3.5, SampleRows: 5}
}

// Report is a markdown-friendly profile of a tabular dataset.
type Report struct {
	Name     string          `json:"name"`
	Rows     int             `json:"rows"`
	Cols     []ColumnSummary `json:"columns"`
	Samples  [][]string      `json:"samples,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// ColumnSummary captures the inferred kind and statistics of a column.
type ColumnSummary struct {
	Name    string `json:"name"`
	Unit    string `json:"unit,omitempty"`
	Kind    string `json:"kind"`
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`

	Numeric *NumSummary `json:"numeric,omitempty"`

	OutliersCount int `json:"outliers,omitempty"`

	TopValues []CategoryCount `json:"top_values,omitempty"`
}

// NumSummary is the describe-style summary of a numeric column.
type NumSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ProfileFile reads a CSV or XLSX file and profiles it.
func ProfileFile(path string, opt Options) (*Report, error) {
	df, err := dataset.ReadFrame(path)
	if err != nil {
		return nil, err
	}
	rep := Profile(df, opt)
	rep.Name = filepath.Base(path)
	return rep, nil
}

// Profile summarizes every column of df. A column is numeric when at least
// 90% of its non-empty cells parse as numbers.
func Profile(df dataframe.DataFrame, opt Options) *Report {
	if opt.TopValues <= 0 {
		opt.TopValues = 5
	}
	rep := &Report{Rows: df.Nrow()}
	names := df.Names()
	for _, name := range names {
		rep.Cols = append(rep.Cols, summarize(name, df.Col(name).Records(), opt))
	}
	for i := 0; i < df.Nrow() && i < opt.SampleRows; i++ {
		row := make([]string, len(names))
		for j, name := range names {
			row[j] = df.Col(name).Elem(i).String()
		}
		rep.Samples = append(rep.Samples, row)
	}
	for _, c := range rep.Cols {
		if c.Kind == KindEmpty {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %q has no values", c.Name))
		}
	}
	return rep
}

func summarize(name string, cells []string, opt Options) ColumnSummary {
	clean, unit := splitUnits(name)
	cs := ColumnSummary{Name: clean, Unit: unit}
	counts := map[string]int{}
	var nums []float64
	for _, raw := range cells {
		s := strings.TrimSpace(raw)
		if s == "" || s == "NaN" || s == "NA" || s == "<nil>" {
			cs.Missing++
			continue
		}
		cs.NonNull++
		counts[s]++
		if v := dataset.ParseNumber(s); !math.IsNaN(v) {
			nums = append(nums, v)
		}
	}
	cs.Unique = len(counts)
	switch {
	case cs.NonNull == 0:
		cs.Kind = KindEmpty
	case float64(len(nums)) >= 0.9*float64(cs.NonNull):
		cs.Kind = KindNumeric
		cs.Numeric = describe(nums)
		if opt.OutlierThreshold > 0 {
			cs.OutliersCount = robustOutliers(nums, opt.OutlierThreshold)
		}
	default:
		cs.Kind = KindCategorical
		cs.TopValues = topValues(counts, opt.TopValues)
	}
	return cs
}

func describe(vals []float64) *NumSummary {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = math.NaN()
	}
	return &NumSummary{
		Count:  len(sorted),
		Mean:   mean,
		Std:    std,
		Min:    sorted[0],
		Q25:    stats.Quantile(sorted, 0.25),
		Median: stats.Quantile(sorted, 0.5),
		Q75:    stats.Quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
}

// robustOutliers counts values whose MAD-based z-score exceeds threshold.
func robustOutliers(vals []float64, threshold float64) int {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	median := stats.Quantile(sorted, 0.5)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad := stats.Quantile(dev, 0.5)
	if mad == 0 {
		return 0
	}
	n := 0
	for _, v := range vals {
		if z := 0.6745 * (v - median) / mad; math.Abs(z) > threshold {
			n++
		}
	}
	return n
}

func topValues(counts map[string]int, n int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, CategoryCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Markdown renders the report as plain markdown.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		name := safeName(c.Name)
		if c.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct))
		switch {
		case c.Numeric != nil:
			n := c.Numeric
			b.WriteString(fmt.Sprintf("; min %.4g, q25 %.4g, median %.4g, q75 %.4g, max %.4g, mean %.4g, std %.4g",
				n.Min, n.Q25, n.Median, n.Q75, n.Max, n.Mean, n.Std))
			if c.OutliersCount > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d", c.OutliersCount))
			}
		case len(c.TopValues) > 0:
			b.WriteString("; top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
			if c.Unique > len(c.TopValues) {
				b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
			}
		}
		b.WriteString("\n")
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[SAMPLE ROWS]\n")
		for _, row := range r.Samples {
			vals := make([]string, len(row))
			for i, v := range row {
				vals[i] = safeVal(v)
			}
			b.WriteString("| " + strings.Join(vals, " | ") + " |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[WARNINGS]\n")
		for _, w := range r.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`),  // Area (km²)
	regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), // Value [US$]
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(s); len(m) == 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[2])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
