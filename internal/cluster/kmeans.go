package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrTooFewForK is returned when the data cannot support at least two clusters.
var ErrTooFewForK = errors.New("not enough countries or features for k-means")

// ErrInvalidK is returned for a cluster count outside [2, MaxK].
var ErrInvalidK = errors.New("invalid number of clusters")

// MaxK bounds the cluster count by countries and features.
func MaxK(countries, features int) (int, error) {
	k := 15
	if countries-1 < k {
		k = countries - 1
	}
	if features < k {
		k = features
	}
	if k < 2 {
		return k, fmt.Errorf("%w: %d countries, %d features", ErrTooFewForK, countries, features)
	}
	return k, nil
}

// KMeans configures a seeded k-means++ fit.
type KMeans struct {
	K       int
	Seed    int64
	NInit   int
	MaxIter int
}

// Model is a fitted clustering.
type Model struct {
	Labels    []int       `json:"labels"`
	Centroids [][]float64 `json:"centroids"`
	Inertia   float64     `json:"inertia"`
	Iter      int         `json:"iterations"`
}

// Fit runs NInit seeded k-means++ initializations with Lloyd iterations and
// keeps the run with the lowest inertia.
func (km KMeans) Fit(x [][]float64) (Model, error) {
	if km.K < 1 || km.K > len(x) {
		return Model{}, fmt.Errorf("%w: k=%d for %d points", ErrInvalidK, km.K, len(x))
	}
	nInit := km.NInit
	if nInit < 1 {
		nInit = 10
	}
	maxIter := km.MaxIter
	if maxIter < 1 {
		maxIter = 300
	}
	rng := rand.New(rand.NewSource(km.Seed))
	var best Model
	for run := 0; run < nInit; run++ {
		m := lloyd(x, seedPlusPlus(x, km.K, rng), maxIter)
		if run == 0 || m.Inertia < best.Inertia {
			best = m
		}
	}
	return best, nil
}

// seedPlusPlus picks k initial centroids, each with probability proportional
// to its squared distance from the nearest centroid chosen so far.
func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(x[rng.Intn(len(x))]))
	d2 := make([]float64, len(x))
	for i := range x {
		d2[i] = sqDist(x[i], centroids[0])
	}
	for len(centroids) < k {
		total := 0.0
		for _, d := range d2 {
			total += d
		}
		next := 0
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range d2 {
				r -= d
				if r <= 0 {
					next = i
					break
				}
				next = i
			}
		} else {
			next = rng.Intn(len(x))
		}
		c := clone(x[next])
		centroids = append(centroids, c)
		for i := range x {
			if d := sqDist(x[i], c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centroids
}

func lloyd(x [][]float64, centroids [][]float64, maxIter int) Model {
	k := len(centroids)
	dim := len(x[0])
	labels := make([]int, len(x))
	for i := range labels {
		labels[i] = -1
	}
	iter := 0
	for iter < maxIter {
		iter++
		changed := false
		for i, p := range x {
			l := nearest(p, centroids)
			if l != labels[i] {
				labels[i] = l
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range x {
			counts[labels[i]]++
			for d, v := range p {
				sums[labels[i]][d] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// An empty cluster takes the point farthest from its centroid.
				far, farD := 0, -1.0
				for i, p := range x {
					if d := sqDist(p, centroids[labels[i]]); d > farD {
						far, farD = i, d
					}
				}
				centroids[c] = clone(x[far])
				continue
			}
			for d := range sums[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}
	// Labels must match the final centroids when maxIter cut the loop short.
	for i, p := range x {
		labels[i] = nearest(p, centroids)
	}
	inertia := 0.0
	for i, p := range x {
		inertia += sqDist(p, centroids[labels[i]])
	}
	return Model{Labels: labels, Centroids: centroids, Inertia: inertia, Iter: iter}
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centroids {
		if d := sqDist(p, ctr); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(p []float64) []float64 {
	return append([]float64(nil), p...)
}

// Silhouette is the mean silhouette coefficient of a labelling. It is zero
// when there are fewer than two clusters or no fewer clusters than points.
func Silhouette(x [][]float64, labels []int) float64 {
	clusters := map[int]int{}
	for _, l := range labels {
		clusters[l]++
	}
	n := len(x)
	if len(clusters) < 2 || len(clusters) >= n {
		return 0
	}
	total := 0.0
	for i := range x {
		sums := map[int]float64{}
		for j := range x {
			if i == j {
				continue
			}
			sums[labels[j]] += math.Sqrt(sqDist(x[i], x[j]))
		}
		own := clusters[labels[i]]
		if own == 1 {
			continue
		}
		a := sums[labels[i]] / float64(own-1)
		b := math.Inf(1)
		for l, cnt := range clusters {
			if l == labels[i] {
				continue
			}
			if m := sums[l] / float64(cnt); m < b {
				b = m
			}
		}
		if den := math.Max(a, b); den > 0 {
			total += (b - a) / den
		}
	}
	return total / float64(n)
}
