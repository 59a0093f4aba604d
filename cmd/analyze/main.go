// Command analyze prints quick, human-readable statistics about board files:
// dimensions, piece counts, the teleport pair, knight-move degrees and the
// landable cells the knight can never reach from the start cell.
//
// Usage:
//
//	analyze -boards_dir=boards [board names...]
//
// Without names every board in the directory is analysed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
	"github.com/wricardo/knightboard/game/planner"
)

var flagBoardsDir = flag.String("boards_dir", "boards", "Directory containing board files.")

// maxListed bounds how many unreachable cells are printed per board.
const maxListed = 5

// Analysis summarises one board.
type Analysis struct {
	Name      string
	Height    int
	Width     int
	Pieces    map[board.Piece]int
	Landable  int
	Teleports []board.Coord
	Start     *board.Coord

	MinDegree, MaxDegree int
	MeanDegree           float64
	DeadEnds             []board.Coord

	// Unreachable lists landable cells with no path from Start.
	Unreachable []board.Coord
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	names := flag.Args()
	if len(names) == 0 {
		files := must.M1(filepath.Glob(filepath.Join(*flagBoardsDir, "*.txt")))
		for _, f := range files {
			names = append(names, strings.TrimSuffix(filepath.Base(f), ".txt"))
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		klog.Exitf("no board files in %s", *flagBoardsDir)
	}

	ctx := context.Background()
	for _, name := range names {
		fmt.Printf("\n=== Analyzing %s ===\n", name)
		b, err := board.Load(filepath.Join(*flagBoardsDir, strings.TrimSuffix(name, ".txt")+".txt"))
		if err != nil {
			fmt.Printf("Error reading board: %v\n", err)
			continue
		}
		a, err := analyze(ctx, name, b)
		if err != nil {
			fmt.Printf("Error analyzing board: %v\n", err)
			continue
		}
		report(os.Stdout, a)
	}
}

func analyze(ctx context.Context, name string, b *board.Board) (*Analysis, error) {
	rules, err := engine.NewRules(b)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Name:      name,
		Height:    b.Height(),
		Width:     b.Width(),
		Pieces:    engine.CountPieces(b),
		Landable:  engine.LandableCells(b),
		Teleports: board.FindAll(b, board.Teleport),
	}

	degrees, err := engine.DegreeMap(rules)
	if err != nil {
		return nil, err
	}
	total := 0
	first := true
	b.Each(func(pos board.Coord, p board.Piece) {
		if !p.Passable() {
			return
		}
		d := degrees.Get(pos)
		total += d
		if first || d < a.MinDegree {
			a.MinDegree = d
		}
		if first || d > a.MaxDegree {
			a.MaxDegree = d
		}
		first = false
		if d == 0 {
			a.DeadEnds = append(a.DeadEnds, pos)
		}
	})
	if a.Landable > 0 {
		a.MeanDegree = float64(total) / float64(a.Landable)
	}

	starts := board.FindAll(b, board.Start)
	if len(starts) == 0 {
		return a, nil
	}
	a.Start = &starts[0]
	plan, err := planner.Plan(ctx, rules, starts[0])
	if err != nil {
		return nil, err
	}
	b.Each(func(pos board.Coord, p board.Piece) {
		if p.Passable() && !plan.Reachable(pos) {
			a.Unreachable = append(a.Unreachable, pos)
		}
	})
	return a, nil
}

func report(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Size: %d x %d (%d landable cells)\n", a.Height, a.Width, a.Landable)

	var parts []string
	for _, p := range board.Pieces {
		if n := a.Pieces[p]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %s: %d", p, p.Name(), n))
		}
	}
	fmt.Fprintf(w, "Pieces: %s\n", strings.Join(parts, ", "))

	switch len(a.Teleports) {
	case 0:
		fmt.Fprintln(w, "Teleports: none")
	case 2:
		fmt.Fprintf(w, "Teleports: %v <-> %v\n", a.Teleports[0], a.Teleports[1])
	default:
		fmt.Fprintf(w, "⚠️  Teleports: %d found, boards need zero or two\n", len(a.Teleports))
	}

	fmt.Fprintf(w, "Move degree: min %d, max %d, mean %.2f\n", a.MinDegree, a.MaxDegree, a.MeanDegree)
	if len(a.DeadEnds) > 0 {
		fmt.Fprintf(w, "⚠️  %d landable cells have no legal move out\n", len(a.DeadEnds))
	}

	if a.Start == nil {
		fmt.Fprintln(w, "⚠️  No start cell, reachability not checked")
		return
	}
	if len(a.Unreachable) == 0 {
		fmt.Fprintf(w, "✅ All landable cells are reachable from start %v\n", *a.Start)
		return
	}
	fmt.Fprintf(w, "⚠️  WARNING: %d landable cells are unreachable from start %v\n", len(a.Unreachable), *a.Start)
	for i, p := range a.Unreachable {
		if i == maxListed {
			fmt.Fprintf(w, "   ... and %d more\n", len(a.Unreachable)-maxListed)
			break
		}
		fmt.Fprintf(w, "   Unreachable: %v\n", p)
	}
}
