// Package isolation implements an isolation forest for unsupervised outlier detection.
package isolation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

const eulerGamma = 0.5772156649015329

// Config holds isolation forest parameters
type Config struct {
	// NumTrees is the ensemble size
	NumTrees int
	// MaxSamples caps the per-tree subsample
	MaxSamples int
	// Contamination is the expected proportion of outliers in training data
	Contamination float64
	// Seed for reproducibility
	Seed    int64
	Workers int
}

// DefaultConfig returns 100 trees, 256 samples, 10% contamination, seed 42
func DefaultConfig() Config {
	return Config{
		NumTrees:      100,
		MaxSamples:    256,
		Contamination: 0.1,
		Seed:          42,
		Workers:       runtime.GOMAXPROCS(0),
	}
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	size      int
}

func (n *node) leaf() bool {
	return n.left == nil
}

// Forest is a fitted isolation forest
type Forest struct {
	trees      []*node
	sampleSize int
	threshold  float64
}

// Fit builds the forest over points and sets the outlier threshold so that
// Contamination of the training points score above it
func Fit(ctx context.Context, points [][]float64, cfg Config) (*Forest, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("isolation: cannot fit on empty data")
	}
	if cfg.NumTrees <= 0 {
		return nil, fmt.Errorf("isolation: NumTrees must be positive, got %d", cfg.NumTrees)
	}
	if cfg.Contamination <= 0 || cfg.Contamination >= 0.5 {
		return nil, fmt.Errorf("isolation: contamination must be in (0, 0.5), got %v", cfg.Contamination)
	}

	psi := min(cfg.MaxSamples, len(points))
	if psi <= 0 {
		psi = len(points)
	}
	heightLimit := int(math.Ceil(math.Log2(math.Max(float64(psi), 2))))

	master := rand.New(rand.NewSource(cfg.Seed))
	seeds := make([]int64, cfg.NumTrees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	f := &Forest{trees: make([]*node, cfg.NumTrees), sampleSize: psi}
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for i := range f.trees {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			sample := rng.Perm(len(points))[:psi]
			rows := make([][]float64, psi)
			for k, idx := range sample {
				rows[k] = points[idx]
			}
			f.trees[i] = grow(rng, rows, 0, heightLimit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("isolation: fit cancelled: %w", err)
	}

	scores := make([]float64, len(points))
	for i, p := range points {
		scores[i] = f.Score(p)
	}
	sort.Float64s(scores)
	f.threshold = stat.Quantile(1-cfg.Contamination, stat.LinInterp, scores, nil)

	return f, nil
}

func grow(rng *rand.Rand, rows [][]float64, depth, limit int) *node {
	if depth >= limit || len(rows) <= 1 {
		return &node{size: len(rows)}
	}

	width := len(rows[0])
	start := rng.Intn(width)
	for k := 0; k < width; k++ {
		feature := (start + k) % width
		lo, hi := rows[0][feature], rows[0][feature]
		for _, r := range rows[1:] {
			lo = math.Min(lo, r[feature])
			hi = math.Max(hi, r[feature])
		}
		if lo == hi {
			continue
		}

		threshold := lo + rng.Float64()*(hi-lo)
		var left, right [][]float64
		for _, r := range rows {
			if r[feature] < threshold {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
		return &node{
			feature:   feature,
			threshold: threshold,
			left:      grow(rng, left, depth+1, limit),
			right:     grow(rng, right, depth+1, limit),
			size:      len(rows),
		}
	}

	// every feature is constant in this partition
	return &node{size: len(rows)}
}

func pathLength(n *node, x []float64, depth int) float64 {
	for !n.leaf() {
		if x[n.feature] < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is the expected unsuccessful-search depth of a BST with n keys
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// Score returns the anomaly score in (0, 1]; larger is more anomalous
func (f *Forest) Score(x []float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(t, x, 0)
	}
	mean := total / float64(len(f.trees))
	c := averagePathLength(f.sampleSize)
	if c == 0 {
		return 0.5
	}
	return math.Pow(2, -mean/c)
}

// Threshold is the training score above which a point is an outlier
func (f *Forest) Threshold() float64 {
	return f.threshold
}

// Margin is how far x scores above the outlier threshold.
// Positive values are outliers.
func (f *Forest) Margin(x []float64) float64 {
	return f.Score(x) - f.threshold
}

// IsOutlier reports whether x scores above the threshold
func (f *Forest) IsOutlier(x []float64) bool {
	return f.Margin(x) > 0
}
