package sdmx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Well-known dimension and attribute names.
const (
	DimCountry    = "COUNTRY"
	DimCategory   = "COICOP_1999"
	DimTimePeriod = "TIME_PERIOD"
	AttrObsValue  = "OBS_VALUE"
)

// ConstantDims are dropped by DropConstantDims when they carry one value only.
var ConstantDims = []string{"INDEX_TYPE", "TYPE_OF_TRANSFORMATION", "FREQUENCY"}

// Observation is one flattened data point: the attributes of its Series
// merged with its own Obs attributes.
type Observation struct {
	Dims map[string]string
}

func (o Observation) Country() string    { return o.Dims[DimCountry] }
func (o Observation) Category() string   { return o.Dims[DimCategory] }
func (o Observation) TimePeriod() string { return o.Dims[DimTimePeriod] }

// Value parses OBS_VALUE; NaN when missing or not numeric.
func (o Observation) Value() float64 {
	s := strings.TrimSpace(o.Dims[AttrObsValue])
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Parse streams a structure-specific data message and flattens every Obs
// under every Series. Obs outside a Series are ignored.
func Parse(r io.Reader) ([]Observation, error) {
	dec := xml.NewDecoder(r)
	var (
		out    []Observation
		series map[string]string
		sawDoc bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse sdmx: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sawDoc = true
			switch t.Name.Local {
			case "Series":
				series = attrs(t.Attr)
			case "Obs":
				if series == nil {
					continue
				}
				row := make(map[string]string, len(series)+len(t.Attr))
				for k, v := range series {
					row[k] = v
				}
				for k, v := range attrs(t.Attr) {
					row[k] = v
				}
				out = append(out, Observation{Dims: row})
			}
		case xml.EndElement:
			if t.Name.Local == "Series" {
				series = nil
			}
		}
	}
	if !sawDoc {
		return nil, errors.New("parse sdmx: empty document")
	}
	return out, nil
}

func attrs(in []xml.Attr) map[string]string {
	m := make(map[string]string, len(in))
	for _, a := range in {
		if isXSIType(a.Name) || a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		m[a.Name.Local] = a.Value
	}
	return m
}

func isXSIType(n xml.Name) bool {
	return n.Local == "type" && (n.Space == "xsi" || strings.Contains(n.Space, "XMLSchema-instance"))
}

// DropConstantDims removes each named dimension from all observations when
// it holds at most one distinct value across them.
func DropConstantDims(obs []Observation, dims ...string) {
	for _, d := range dims {
		seen := map[string]struct{}{}
		for _, o := range obs {
			if v, ok := o.Dims[d]; ok {
				seen[v] = struct{}{}
			}
		}
		if len(seen) > 1 {
			continue
		}
		for _, o := range obs {
			delete(o.Dims, d)
		}
	}
}

// Records converts observations to a header plus rows. Well-known columns
// come first, the remaining dimensions follow in alphabetical order.
func Records(obs []Observation) (header []string, rows [][]string) {
	cols := map[string]struct{}{}
	for _, o := range obs {
		for k := range o.Dims {
			cols[k] = struct{}{}
		}
	}
	for _, k := range []string{DimCountry, DimCategory, DimTimePeriod, AttrObsValue} {
		if _, ok := cols[k]; ok {
			header = append(header, k)
			delete(cols, k)
		}
	}
	rest := make([]string, 0, len(cols))
	for k := range cols {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	header = append(header, rest...)

	rows = make([][]string, 0, len(obs))
	for _, o := range obs {
		r := make([]string, len(header))
		for i, h := range header {
			r[i] = o.Dims[h]
		}
		rows = append(rows, r)
	}
	return header, rows
}
