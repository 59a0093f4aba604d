package tour

import (
	"context"
	"runtime"
	"slices"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
)

// Compare runs one search per named heuristic concurrently, each over its own
// copy of the board, and returns the results best first. Ties keep the order
// of names. opts apply to every search; a WithProgress callback may be called
// from several goroutines at once.
func Compare(ctx context.Context, rules *engine.Rules, start board.Coord, names []string, seed uint64, opts ...Option) ([]*Result, error) {
	if len(names) == 0 {
		names = HeuristicNames
	}
	heuristics := make([]Heuristic, len(names))
	for i, name := range names {
		h, err := HeuristicByName(name, seed+uint64(i))
		if err != nil {
			return nil, err
		}
		heuristics[i] = h
	}

	results := make([]*Result, len(heuristics))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, h := range heuristics {
		g.Go(func() error {
			searchOpts := append(slices.Clone(opts), WithHeuristic(h))
			res, err := NewSearcher(rules.Clone(), searchOpts...).Search(gctx, start)
			if err != nil {
				return errors.WithMessagef(err, "heuristic %s", h.Name())
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b *Result) int {
		if a.Found() != b.Found() {
			if a.Found() {
				return -1
			}
			return 1
		}
		return b.Cost - a.Cost
	})
	if klog.V(1).Enabled() {
		for rank, res := range results {
			klog.Infof("compare: #%d %s cost %d over %d cells (%d nodes)", rank+1, res.Heuristic, res.Cost, len(res.Path), res.Nodes)
		}
	}
	return results, nil
}
