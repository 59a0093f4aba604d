// Package validate checks board files before they are used for planning.
//
// A board file is valid when it:
//   - parses as a rectangular grid of known pieces
//   - holds exactly one start (S) and one end (E) cell
//   - holds either no teleports (T) or exactly one pair
//   - lets the knight reach E from S
//
// Valid boards also get informational notes: size, piece counts, the cost of
// the cheapest S to E path and how many landable cells the knight can never
// reach from S.
package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
	"github.com/wricardo/knightboard/game/planner"
)

// Result captures the outcome of validating a single file.
type Result struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

func (r *Result) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// File loads and validates one board file.
func File(ctx context.Context, path string) Result {
	result := Result{File: filepath.Base(path), Valid: true}

	data, err := os.ReadFile(path)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}
	b, err := board.Parse(string(data))
	if err != nil {
		result.fail("Invalid board: %v", err)
		return result
	}
	Board(ctx, b, &result)
	return result
}

// Board validates an already parsed board into result.
func Board(ctx context.Context, b *board.Board, result *Result) {
	if err := engine.ValidateLayout(b); err != nil {
		result.fail("%v", err)
		return
	}

	rules, err := engine.NewRules(b)
	if err != nil {
		result.fail("%v", err)
		return
	}
	start, end, err := board.Locate(b)
	if err != nil {
		result.fail("%v", err)
		return
	}

	plan, err := planner.Plan(ctx, rules, start)
	if err != nil {
		result.fail("Planning failed: %v", err)
		return
	}
	cost, ok := plan.Cost(end)
	if !ok {
		result.fail("Connectivity failure: end %v unreachable from start %v", end, start)
		return
	}

	result.note("Grid: %dx%d", b.Height(), b.Width())
	result.note("Pieces: %s", pieceSummary(b))
	result.note("Cheapest path %v -> %v: cost %d", start, end, cost)
	if unreachable := engine.LandableCells(b) - plan.Reached(); unreachable > 0 {
		result.note("%d landable cells unreachable from start", unreachable)
	} else {
		result.note("Connectivity: every landable cell reachable from start")
	}
}

// Dir validates every board file in dir, sorted by name.
func Dir(ctx context.Context, dir string) ([]Result, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, errors.Wrap(err, "finding board files")
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no board files in %s", dir)
	}
	sort.Strings(files)

	results := make([]Result, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, File(ctx, file))
	}
	return results, nil
}

// Print writes a report for results and reports whether all were valid.
func Print(w io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Notes {
				fmt.Fprintln(w, "  ✓ "+info)
			}
			continue
		}
		allValid = false
		fmt.Fprintln(w, "❌ INVALID")
		for _, err := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+err)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All boards are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some boards have errors")
	}
	return allValid
}

func pieceSummary(b *board.Board) string {
	counts := engine.CountPieces(b)
	var parts []string
	for _, p := range board.Pieces {
		if n := counts[p]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", p.Name(), n))
		}
	}
	return strings.Join(parts, " ")
}
