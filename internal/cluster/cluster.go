// Package cluster groups embedding vectors into topical clusters.
package cluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/sefs/internal/embed"
)

// Noise is the label of vectors that belong to no cluster.
const Noise = -1

// ErrDimensionMismatch is returned when vectors differ in length.
var ErrDimensionMismatch = errors.New("cluster: vector dimensions differ")

// Provider assigns one label per vector: Noise, or a cluster id >= 0.
type Provider interface {
	Cluster(ctx context.Context, vectors [][]float32) ([]int, error)
}

// Threshold links vectors whose cosine similarity reaches Similarity and
// labels every connected component of at least MinSize members as a cluster.
type Threshold struct {
	Similarity float64
	MinSize    int
}

// NewThreshold returns a Threshold clusterer. MinSize below 2 is raised to 2.
func NewThreshold(similarity float64, minSize int) *Threshold {
	if minSize < 2 {
		minSize = 2
	}
	return &Threshold{Similarity: similarity, MinSize: minSize}
}

// Cluster labels components in order of their lowest-index member so the
// result is deterministic for a given input order.
func (t *Threshold) Cluster(ctx context.Context, vectors [][]float32) ([]int, error) {
	n := len(vectors)
	labels := make([]int, n)
	if n == 0 {
		return labels, nil
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < n; j++ {
			if embed.Cosine(vectors[i], vectors[j]) >= t.Similarity {
				uf.union(i, j)
			}
		}
	}

	size := make(map[int]int)
	for i := 0; i < n; i++ {
		size[uf.find(i)]++
	}

	next := 0
	assigned := make(map[int]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		if size[root] < t.MinSize {
			labels[i] = Noise
			continue
		}
		id, ok := assigned[root]
		if !ok {
			id = next
			assigned[root] = id
			next++
		}
		labels[i] = id
	}
	return labels, nil
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}
