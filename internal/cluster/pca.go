package cluster

import (
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrPCAUnavailable is returned when a 2D projection is not meaningful.
var ErrPCAUnavailable = errors.New("not enough features for PCA (need at least 3)")

// Projection is the 2D principal component view of the scaled data.
type Projection struct {
	PC1       []float64  `json:"pc1"`
	PC2       []float64  `json:"pc2"`
	Explained [2]float64 `json:"explained_variance_ratio"`
}

// PCA2 projects x onto its first two principal components.
func PCA2(x [][]float64) (Projection, error) {
	n := len(x)
	if n < 2 || len(x[0]) <= 2 {
		return Projection{}, ErrPCAUnavailable
	}
	f := len(x[0])
	data := mat.NewDense(n, f, nil)
	for i, row := range x {
		data.SetRow(i, row)
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return Projection{}, errors.New("principal component decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)
	if _, c := vecs.Dims(); c < 2 {
		return Projection{}, ErrPCAUnavailable
	}

	means := make([]float64, f)
	for j := 0; j < f; j++ {
		means[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}
	centered := mat.NewDense(n, f, nil)
	centered.Apply(func(_, j int, v float64) float64 { return v - means[j] }, data)
	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, f, 0, 2))

	p := Projection{PC1: mat.Col(nil, 0, &proj), PC2: mat.Col(nil, 1, &proj)}
	total := 0.0
	for _, v := range vars {
		total += v
	}
	if total > 0 {
		p.Explained = [2]float64{vars[0] / total, vars[1] / total}
	}
	return p, nil
}
