package dataset

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/KaramelBytes/nomadcompass/internal/cache"
	"github.com/KaramelBytes/nomadcompass/internal/sdmx"
	"github.com/KaramelBytes/nomadcompass/internal/utils"
)

const cacheNamespace = "nomad:dataset"

var loadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nomad_dataset_loads_total",
		Help: "Dataset loads by dataset and result (hit, miss, error)",
	},
	[]string{"dataset", "result"},
)

// Fetcher retrieves SDMX observations.
type Fetcher interface {
	Fetch(ctx context.Context, q sdmx.Query) ([]sdmx.Observation, error)
	URL(q sdmx.Query) string
}

// Sources are the resolved file paths of each dataset. An empty
// AggregateCPI means the aggregate series is fetched remotely.
type Sources struct {
	Population     string
	NHA            string
	CategoricalCPI string
	AggregateCPI   string
}

// Options configures a Loader.
type Options struct {
	Sources          Sources
	Cache            cache.Cache
	TTL              time.Duration
	Fetcher          Fetcher
	AggregateQuery   sdmx.Query
	CategoricalQuery sdmx.Query
	Logger           *zap.Logger
}

// Loader reads datasets through a cache.
type Loader struct {
	src      Sources
	cache    cache.Cache
	ttl      time.Duration
	fetcher  Fetcher
	aggQuery sdmx.Query
	catQuery sdmx.Query
	log      *zap.Logger
}

func NewLoader(opt Options) *Loader {
	if opt.Cache == nil {
		opt.Cache = cache.NewMemory()
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return &Loader{
		src:      opt.Sources,
		cache:    opt.Cache,
		ttl:      opt.TTL,
		fetcher:  opt.Fetcher,
		aggQuery: opt.AggregateQuery,
		catQuery: opt.CategoricalQuery,
		log:      opt.Logger,
	}
}

// Population loads the world population table.
func (l *Loader) Population(ctx context.Context) ([]PopulationRow, error) {
	var rows []PopulationRow
	err := l.fromFile(ctx, "population", l.src.Population, &rows, func(df dataframe.DataFrame) (any, error) {
		return populationRows(df)
	})
	return rows, err
}

// NHA loads the health accounts indicators table.
func (l *Loader) NHA(ctx context.Context) ([]NHARow, error) {
	var rows []NHARow
	err := l.fromFile(ctx, "nha", l.src.NHA, &rows, func(df dataframe.DataFrame) (any, error) {
		return nhaRows(df)
	})
	return rows, err
}

// CategoricalCPI loads the per-category CPI snapshot.
func (l *Loader) CategoricalCPI(ctx context.Context) ([]CPIRecord, error) {
	var rows []CPIRecord
	err := l.fromFile(ctx, "cpi_categorical", l.src.CategoricalCPI, &rows, func(df dataframe.DataFrame) (any, error) {
		return cpiRecords(df)
	})
	return rows, err
}

// AggregateCPI loads the all-items CPI series, from the configured snapshot
// file or else from the SDMX endpoint.
func (l *Loader) AggregateCPI(ctx context.Context) ([]CPIRecord, error) {
	var rows []CPIRecord
	if l.src.AggregateCPI != "" {
		err := l.fromFile(ctx, "cpi_aggregate", l.src.AggregateCPI, &rows, func(df dataframe.DataFrame) (any, error) {
			return cpiRecords(df)
		})
		return rows, err
	}
	if l.fetcher == nil {
		return nil, errors.New("aggregate CPI: no snapshot file and no remote client configured")
	}
	key := l.fetcher.URL(l.aggQuery)
	if ok := l.lookup(ctx, "cpi_aggregate", key, &rows); ok {
		return rows, nil
	}
	obs, err := l.fetcher.Fetch(ctx, l.aggQuery)
	if err != nil {
		loadsTotal.WithLabelValues("cpi_aggregate", "error").Inc()
		return nil, fmt.Errorf("fetch aggregate CPI: %w", err)
	}
	rows = RecordsFromObservations(obs)
	l.store(ctx, "cpi_aggregate", key, rows)
	return rows, nil
}

// FetchObservations downloads the raw observations for "aggregate" or
// "categorical" with constant dimensions removed.
func (l *Loader) FetchObservations(ctx context.Context, kind string) ([]sdmx.Observation, error) {
	if l.fetcher == nil {
		return nil, errors.New("no remote client configured")
	}
	var q sdmx.Query
	switch kind {
	case "aggregate":
		q = l.aggQuery
	case "categorical":
		q = l.catQuery
	default:
		return nil, fmt.Errorf("unknown CPI series %q (use aggregate or categorical)", kind)
	}
	obs, err := l.fetcher.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	sdmx.DropConstantDims(obs, sdmx.ConstantDims...)
	return obs, nil
}

// RecordsFromObservations keeps numeric observations. Series without a
// COICOP dimension are aggregate ("_T").
func RecordsFromObservations(obs []sdmx.Observation) []CPIRecord {
	out := make([]CPIRecord, 0, len(obs))
	for _, o := range obs {
		v := o.Value()
		if math.IsNaN(v) {
			continue
		}
		cat := o.Category()
		if cat == "" {
			cat = "_T"
		}
		out = append(out, CPIRecord{Country: o.Country(), Category: cat, TimePeriod: o.TimePeriod(), Value: v})
	}
	return out
}

// WriteSnapshot writes observations as CSV, atomically replacing path.
func WriteSnapshot(path string, obs []sdmx.Observation) error {
	header, rows := sdmx.Records(obs)
	if len(header) == 0 {
		return errors.New("no observations to write")
	}
	df, err := FrameFromRecords(append([][]string{header}, rows...))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := df.WriteCSV(&buf); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// Degrade turns a load failure into an empty result and a user-facing warning.
func Degrade[T any](rows []T, err error, what string) ([]T, string) {
	if err != nil {
		return nil, fmt.Sprintf("%s could not be loaded: %v", what, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Sprintf("%s is empty", what)
	}
	return rows, ""
}

func (l *Loader) fromFile(ctx context.Context, name, path string, dst any, convert func(dataframe.DataFrame) (any, error)) error {
	if path == "" {
		loadsTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("%s: no source file configured", name)
	}
	st, err := os.Stat(path)
	if err != nil {
		loadsTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("%s: %w", name, err)
	}
	key := path + "|" + strconv.FormatInt(st.ModTime().UnixNano(), 10) + "|" + strconv.FormatInt(st.Size(), 10)
	if l.lookup(ctx, name, key, dst) {
		return nil
	}
	df, err := ReadFrame(path)
	if err != nil {
		loadsTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("%s: %w", name, err)
	}
	rows, err := convert(df)
	if err != nil {
		loadsTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := assign(dst, rows); err != nil {
		return err
	}
	l.store(ctx, name, key, rows)
	l.log.Info("dataset loaded", zap.String("dataset", name), zap.String("path", path))
	return nil
}

func (l *Loader) lookup(ctx context.Context, name, key string, dst any) bool {
	b, ok, err := l.cache.Get(ctx, cacheNamespace, key)
	if err != nil {
		l.log.Warn("dataset cache read failed", zap.String("dataset", name), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(dst); err != nil {
		l.log.Warn("dataset cache entry undecodable", zap.String("dataset", name), zap.Error(err))
		return false
	}
	loadsTotal.WithLabelValues(name, "hit").Inc()
	return true
}

func (l *Loader) store(ctx context.Context, name, key string, rows any) {
	loadsTotal.WithLabelValues(name, "miss").Inc()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rows); err != nil {
		l.log.Warn("dataset cache encode failed", zap.String("dataset", name), zap.Error(err))
		return
	}
	if err := l.cache.Set(ctx, cacheNamespace, key, buf.Bytes(), l.ttl); err != nil {
		l.log.Warn("dataset cache write failed", zap.String("dataset", name), zap.Error(err))
	}
}

func assign(dst, rows any) error {
	switch d := dst.(type) {
	case *[]PopulationRow:
		*d = rows.([]PopulationRow)
	case *[]NHARow:
		*d = rows.([]NHARow)
	case *[]CPIRecord:
		*d = rows.([]CPIRecord)
	default:
		return fmt.Errorf("unsupported dataset type %T", dst)
	}
	return nil
}
