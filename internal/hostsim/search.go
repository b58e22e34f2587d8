package hostsim

import (
	"container/heap"
	"fmt"

	"arenagrid.ai/internal/mathx"
	"arenagrid.ai/internal/objects"
)

const (
	DefaultPlainCost = 2
	DefaultSwampCost = 10
	DefaultMaxOps    = 50000

	blockedCell = 255
)

type searchConfig struct {
	plainCost int
	swampCost int
	maxOps    int
	maxCost   int
	matrix    []uint8
}

var neighborOffsets = [...][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// searchConfig reads the options this host understands. HeuristicWeight
// and Ignore are accepted and have no effect: search is uniform-cost and
// objects never block movement here.
func (s *Sim) searchConfig(opts *objects.FindPathOptions) (searchConfig, error) {
	cfg := searchConfig{
		plainCost: DefaultPlainCost,
		swampCost: DefaultSwampCost,
		maxOps:    DefaultMaxOps,
	}
	if opts == nil {
		return cfg, nil
	}
	if opts.Flee {
		return cfg, fmt.Errorf("%w: %w: flee search", objects.ErrHost, objects.ErrUnsupported)
	}
	if opts.PlainCost > 0 {
		cfg.plainCost = opts.PlainCost
	}
	if opts.SwampCost > 0 {
		cfg.swampCost = opts.SwampCost
	}
	if opts.MaxOps > 0 {
		cfg.maxOps = opts.MaxOps
	}
	if opts.MaxCost > 0 {
		cfg.maxCost = opts.MaxCost
	}
	if opts.CostMatrix != nil {
		m, ok := s.matrices[opts.CostMatrix.Handle]
		if !ok {
			return cfg, fmt.Errorf("%w: %w: cost matrix %s", objects.ErrHost, ErrUnknownObject, opts.CostMatrix)
		}
		cfg.matrix = m
	}
	return cfg, nil
}

func (s *Sim) stepCost(cfg searchConfig, x, y int) (int, bool) {
	if !s.inBounds(x, y) {
		return 0, false
	}
	idx := y*s.width + x
	if cfg.matrix != nil {
		switch c := cfg.matrix[idx]; {
		case c == blockedCell:
			return 0, false
		case c > 0:
			return int(c), true
		}
	}
	switch s.terrain[idx] {
	case TerrainWall:
		return 0, false
	case TerrainSwamp:
		return cfg.swampCost, true
	default:
		return cfg.plainCost, true
	}
}

type searchResult struct {
	found bool
	end   objects.Position
	path  []objects.Position
	ops   int
	cost  int
}

type searchNode struct {
	idx   int
	g     int
	index int
}

type searchQueue []*searchNode

func (q searchQueue) Len() int           { return len(q) }
func (q searchQueue) Less(i, j int) bool { return q[i].g < q[j].g }
func (q searchQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *searchQueue) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *searchQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// search is a uniform-cost search from `from` to the nearest of goals.
// When no goal is reached, the path leads to the explored cell closest to
// any goal and found is false.
func (s *Sim) search(from objects.Position, goals map[objects.Position]int, cfg searchConfig) searchResult {
	if _, ok := goals[from]; ok {
		return searchResult{found: true, end: from, path: []objects.Position{}}
	}
	start := int(from.Y)*s.width + int(from.X)
	dist := map[int]int{start: 0}
	parent := map[int]int{}
	closed := map[int]struct{}{}

	open := &searchQueue{}
	heap.Init(open)
	heap.Push(open, &searchNode{idx: start, g: 0})

	bestIdx, bestH := start, s.goalRange(from, goals)
	ops := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(*searchNode)
		if _, seen := closed[cur.idx]; seen {
			continue
		}
		if ops >= cfg.maxOps {
			break
		}
		ops++
		closed[cur.idx] = struct{}{}

		p := s.cellPos(cur.idx)
		if _, ok := goals[p]; ok {
			return searchResult{found: true, end: p, path: s.tracePath(parent, start, cur.idx), ops: ops, cost: cur.g}
		}
		if h := s.goalRange(p, goals); h < bestH || (h == bestH && cur.g < dist[bestIdx]) {
			bestIdx, bestH = cur.idx, h
		}

		for _, d := range neighborOffsets {
			nx, ny := int(p.X)+d[0], int(p.Y)+d[1]
			c, ok := s.stepCost(cfg, nx, ny)
			if !ok {
				continue
			}
			nIdx := ny*s.width + nx
			if _, seen := closed[nIdx]; seen {
				continue
			}
			g := cur.g + c
			if cfg.maxCost > 0 && g > cfg.maxCost {
				continue
			}
			if prev, ok := dist[nIdx]; ok && g >= prev {
				continue
			}
			dist[nIdx] = g
			parent[nIdx] = cur.idx
			heap.Push(open, &searchNode{idx: nIdx, g: g})
		}
	}
	return searchResult{
		end:  s.cellPos(bestIdx),
		path: s.tracePath(parent, start, bestIdx),
		ops:  ops,
		cost: dist[bestIdx],
	}
}

func (s *Sim) goalRange(p objects.Position, goals map[objects.Position]int) int {
	best := -1
	for g := range goals {
		d := mathx.Chebyshev(int(p.X), int(p.Y), int(g.X), int(g.Y))
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

func (s *Sim) cellPos(idx int) objects.Position {
	return objects.Position{X: uint8(idx % s.width), Y: uint8(idx / s.width)}
}

// tracePath excludes the start cell and ends at end.
func (s *Sim) tracePath(parent map[int]int, start, end int) []objects.Position {
	path := []objects.Position{}
	for idx := end; idx != start; {
		path = append(path, s.cellPos(idx))
		p, ok := parent[idx]
		if !ok {
			break
		}
		idx = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
