package tour

import (
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/wricardo/knightboard/game/board"
)

// Candidate is a move the search may descend into, paired with the number of
// onward moves its cell still offers.
type Candidate struct {
	Degree int         `json:"degree"`
	Pos    board.Coord `json:"pos"`
}

// Heuristic orders the candidates of a search frame. Order must return a
// permutation of its input; it may reorder the slice in place.
type Heuristic interface {
	Name() string
	Order(candidates []Candidate) []Candidate
}

var ErrUnknownHeuristic = errors.New("tour: unknown heuristic")

// HeuristicNames lists the names accepted by HeuristicByName.
var HeuristicNames = []string{"identity", "dense", "sparse", "random"}

// HeuristicByName builds a heuristic from its name. seed is only used by
// "random".
func HeuristicByName(name string, seed uint64) (Heuristic, error) {
	switch strings.ToLower(name) {
	case "", "identity", "none":
		return Identity{}, nil
	case "dense", "dense-first", "warnsdorff":
		return DenseFirst{}, nil
	case "sparse", "sparse-first":
		return SparseFirst{}, nil
	case "random", "shuffle":
		return NewRandom(seed), nil
	}
	return nil, errors.Wrapf(ErrUnknownHeuristic, "%q (want one of %s)", name, strings.Join(HeuristicNames, ", "))
}

// Identity keeps the move generator's order.
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Order(c []Candidate) []Candidate { return c }

// DenseFirst tries the most constrained cells first, those with the fewest
// remaining onward moves.
type DenseFirst struct{}

func (DenseFirst) Name() string { return "dense" }

func (DenseFirst) Order(c []Candidate) []Candidate {
	slices.SortStableFunc(c, func(a, b Candidate) int { return a.Degree - b.Degree })
	return c
}

// SparseFirst tries the least constrained cells first.
type SparseFirst struct{}

func (SparseFirst) Name() string { return "sparse" }

func (SparseFirst) Order(c []Candidate) []Candidate {
	slices.SortStableFunc(c, func(a, b Candidate) int { return b.Degree - a.Degree })
	return c
}

// Random shuffles the candidates. It is not safe for concurrent use.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a shuffling heuristic with a reproducible seed.
func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (*Random) Name() string { return "random" }

func (r *Random) Order(c []Candidate) []Candidate {
	r.rng.Shuffle(len(c), func(i, j int) { c[i], c[j] = c[j], c[i] })
	return c
}
