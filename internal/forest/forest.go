// Package forest implements a bootstrap-aggregated ensemble of regression trees.
package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// DefaultSeed keeps training reproducible across runs
const DefaultSeed int64 = 42

// Config holds ensemble hyperparameters
type Config struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64
	Workers         int
}

// DefaultConfig returns the documented baseline: 100 trees, depth 10, seed 42
func DefaultConfig() Config {
	return Config{
		NumTrees:        100,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		Seed:            DefaultSeed,
		Workers:         runtime.GOMAXPROCS(0),
	}
}

// Forest is a trained regression ensemble
type Forest struct {
	Trees       []*Tree `json:"trees"`
	NumFeatures int     `json:"num_features"`
}

// Fit trains the ensemble. Per-tree bootstrap seeds are drawn sequentially from
// cfg.Seed before any tree is grown, so results do not depend on scheduling.
func Fit(ctx context.Context, x [][]float64, y []float64, cfg Config) (*Forest, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("forest: empty training matrix")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("forest: %d rows but %d targets", len(x), len(y))
	}
	if cfg.NumTrees <= 0 {
		return nil, fmt.Errorf("forest: NumTrees must be positive, got %d", cfg.NumTrees)
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}

	master := rand.New(rand.NewSource(cfg.Seed))
	seeds := make([]int64, cfg.NumTrees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*Tree, cfg.NumTrees)
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			idx := make([]int, len(x))
			for k := range idx {
				idx[k] = rng.Intn(len(x))
			}
			trees[i] = fitTree(x, y, idx, cfg.MaxDepth, cfg.MinSamplesSplit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("forest: training cancelled: %w", err)
	}

	return &Forest{Trees: trees, NumFeatures: len(x[0])}, nil
}

// PredictEach returns one prediction per tree
func (f *Forest) PredictEach(x []float64) ([]float64, error) {
	if len(x) != f.NumFeatures {
		return nil, fmt.Errorf("forest: expected %d features, got %d", f.NumFeatures, len(x))
	}
	out := make([]float64, len(f.Trees))
	for i, t := range f.Trees {
		out[i] = t.Predict(x)
	}
	return out, nil
}

// Predict returns the ensemble mean
func (f *Forest) Predict(x []float64) (float64, error) {
	each, err := f.PredictEach(x)
	if err != nil {
		return 0, err
	}
	return stat.Mean(each, nil), nil
}

// Score returns the coefficient of determination over rows
func (f *Forest) Score(x [][]float64, y []float64) (float64, error) {
	estimates := make([]float64, len(x))
	for i, row := range x {
		p, err := f.Predict(row)
		if err != nil {
			return 0, err
		}
		estimates[i] = p
	}
	return R2(estimates, y), nil
}

// R2 is 1 - SSres/SStot. A constant target scores 1 when matched exactly and 0 otherwise.
func R2(estimates, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if stat.Variance(values, nil) == 0 || len(values) == 1 {
		for i := range values {
			if estimates[i] != values[i] {
				return 0
			}
		}
		return 1
	}
	return stat.RSquaredFrom(estimates, values, nil)
}

// Split shuffles row indices with seed and holds out testFraction of them.
// The held-out size is rounded up, matching the usual train/test convention.
func Split(n int, testFraction float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest > n {
		nTest = n
	}
	return perm[nTest:], perm[:nTest]
}
