package forest

import (
	"math"
	"sort"
)

// Node is one entry of a flattened regression tree.
// Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// Tree is a CART regression tree minimizing squared error
type Tree struct {
	Nodes []Node `json:"nodes"`
}

type treeBuilder struct {
	x        [][]float64
	y        []float64
	maxDepth int
	minSplit int
	nodes    []Node
}

// fitTree grows a tree on the rows of x selected by idx (duplicates allowed)
func fitTree(x [][]float64, y []float64, idx []int, maxDepth, minSplit int) *Tree {
	b := &treeBuilder{x: x, y: y, maxDepth: maxDepth, minSplit: minSplit}
	b.grow(idx, 0)
	return &Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: b.mean(idx)})

	if depth >= b.maxDepth || len(idx) < b.minSplit {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].Feature = feature
	b.nodes[id].Threshold = threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

func (b *treeBuilder) mean(idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	return sum / float64(len(idx))
}

// bestSplit scans every feature in column order; the first strictly best split wins
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	var total, totalSq float64
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	parentSSE := totalSq - total*total/float64(n)
	if parentSSE <= 1e-12 {
		return 0, 0, false
	}

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, n)
	for f := 0; f < len(b.x[idx[0]]); f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.x[sorted[a]][f] < b.x[sorted[c]][f]
		})

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			yi := b.y[sorted[k]]
			leftSum += yi
			leftSq += yi * yi

			cur := b.x[sorted[k]][f]
			next := b.x[sorted[k+1]][f]
			if cur == next {
				continue
			}

			nl := float64(k + 1)
			nr := float64(n - k - 1)
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			gain := parentSSE - sse
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// Predict walks the tree for one scaled feature row
func (t *Tree) Predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return math.NaN()
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the longest root-to-leaf edge count
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}
