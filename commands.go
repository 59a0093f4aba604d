package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"k8s.io/klog/v2"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/config"
	"github.com/wricardo/knightboard/game/engine"
	"github.com/wricardo/knightboard/game/planner"
	"github.com/wricardo/knightboard/game/render"
	"github.com/wricardo/knightboard/game/tour"
	"github.com/wricardo/knightboard/validate"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

func boardFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "board", Aliases: []string{"b"}, Usage: "board name from the library (default board when empty)"},
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "board file to load instead of a library board"},
		&cli.StringFlag{Name: "barrier-mode", Value: "any", Usage: `how barriers block moves: "any" or "all"`},
		&cli.BoolFlag{Name: "no-color", Usage: "disable colours"},
	}
}

func tourFlags() []cli.Flag {
	return append(boardFlags(),
		&cli.StringFlag{Name: "start", Usage: `start cell as "row,col" (default: the S cell)`},
		&cli.DurationFlag{Name: "budget", Value: tour.DefaultBudget, Usage: "time budget per search"},
		&cli.IntFlag{Name: "accept-cost", Usage: "stop once a path reaches this cost"},
		&cli.BoolFlag{Name: "coverage", Usage: "stop once a path visits every reachable cell"},
		&cli.StringFlag{Name: "end", Usage: `only accept paths finishing on "row,col"`},
		&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "seed of the random heuristic"},
	)
}

// out is where command results are written.
func out(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}

func newRenderer(cmd *cli.Command, valueWidth int) *render.Renderer {
	color := !cmd.Bool("no-color") && render.IsTerminal(out(cmd))
	return render.New(render.WithColor(color), render.WithValueWidth(valueWidth))
}

// loadRules loads the board selected by --file or --board and builds its
// movement rules.
func loadRules(cmd *cli.Command) (string, *engine.Rules, error) {
	var name string
	var b *board.Board
	if path := cmd.String("file"); path != "" {
		loaded, err := board.Load(path)
		if err != nil {
			return "", nil, err
		}
		name, b = strings.TrimSuffix(filepath.Base(path), config.BoardExt), loaded
	} else {
		lib, err := config.NewManager(cmd.String("boards-dir"))
		if err != nil {
			return "", nil, err
		}
		if name = cmd.String("board"); name == "" {
			var def *board.Board
			name, def = lib.GetDefault()
			b = def.Clone()
		} else if b, err = lib.LoadBoard(name); err != nil {
			return "", nil, err
		}
	}

	mode, err := engine.ParseBarrierMode(cmd.String("barrier-mode"))
	if err != nil {
		return "", nil, err
	}
	rules, err := engine.NewRules(b, engine.WithBarrierMode(mode))
	if err != nil {
		return "", nil, errors.WithMessagef(err, "board %s", name)
	}
	klog.V(1).Infof("loaded board %s (%dx%d, barrier mode %s)", name, b.Height(), b.Width(), mode)
	return name, rules, nil
}

// coordFlag parses a "row,col" flag. When the flag is empty the first cell
// holding fallback is used.
func coordFlag(cmd *cli.Command, flagName string, b *board.Board, fallback board.Piece) (board.Coord, error) {
	if raw := cmd.String(flagName); raw != "" {
		pos, err := board.ParseCoord(raw)
		return pos, errors.WithMessagef(err, "--%s", flagName)
	}
	cells := board.FindAll(b, fallback)
	if len(cells) == 0 {
		return board.Coord{}, errors.Errorf("--%s not given and the board has no %s cell", flagName, fallback.Name())
	}
	return cells[0], nil
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "find the cheapest knight path between two cells",
		Flags: append(boardFlags(),
			&cli.StringFlag{Name: "start", Usage: `start cell as "row,col" (default: the S cell)`},
			&cli.StringFlag{Name: "goal", Usage: `goal cell as "row,col" (default: the E cell)`},
			&cli.BoolFlag{Name: "pq", Usage: "expand the cheapest frontier cell first"},
			&cli.BoolFlag{Name: "list", Usage: "also list the path step by step"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, rules, err := loadRules(cmd)
			if err != nil {
				return err
			}
			start, err := coordFlag(cmd, "start", rules.Board(), board.Start)
			if err != nil {
				return err
			}
			goal, err := coordFlag(cmd, "goal", rules.Board(), board.End)
			if err != nil {
				return err
			}

			var opts []planner.Option
			if cmd.Bool("pq") {
				opts = append(opts, planner.WithPriorityQueue())
			}
			res, err := planner.Plan(ctx, rules, start, opts...)
			if err != nil {
				return err
			}
			path, err := res.ShortestPath(goal)
			if err != nil {
				return errors.WithMessagef(err, "%v -> %v on %s (%d cells reachable)", start, goal, name, res.Reached())
			}
			costs := res.StepCosts(path)

			w := out(cmd)
			fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s: %v -> %v cost %d in %d moves", name, start, goal, costs[len(costs)-1], len(path)-1)))
			fmt.Fprintf(w, "reached %d cells, %d pops, %d relaxations, %v\n\n", res.Reached(), res.Pops, res.Relaxations, res.Elapsed.Round(time.Microsecond))
			render.Fprint(w, newRenderer(cmd, 2).PathGrid(rules.Board(), path, costs))
			if cmd.Bool("list") {
				fmt.Fprintln(w)
				fmt.Fprint(w, newRenderer(cmd, 1).PathList(path, costs))
			}
			return nil
		},
	}
}

// tourOptions turns the shared search flags into searcher options.
func tourOptions(cmd *cli.Command) ([]tour.Option, error) {
	opts := []tour.Option{tour.WithBudget(cmd.Duration("budget"))}
	if raw := cmd.String("end"); raw != "" {
		end, err := board.ParseCoord(raw)
		if err != nil {
			return nil, errors.WithMessage(err, "--end")
		}
		opts = append(opts, tour.WithEnd(end))
	}
	if c := cmd.Int("accept-cost"); c > 0 {
		opts = append(opts, tour.WithAcceptCost(c))
	}
	if cmd.Bool("coverage") {
		opts = append(opts, tour.WithCoverage())
	}
	return opts, nil
}

// accumulatedCosts prices every position of path, the start cell included.
func accumulatedCosts(rules *engine.Rules, path []board.Coord) ([]int, error) {
	steps := make([]int, len(path))
	for i := range path {
		c, err := rules.CostAt(path[i])
		if err != nil {
			return nil, err
		}
		steps[i] = c
	}
	return render.AccumulatedCosts(steps), nil
}

func tourStatus(res *tour.Result) string {
	switch {
	case res.Accepted:
		return "accepted"
	case res.BudgetExhausted:
		return "budget exhausted"
	}
	return "search space exhausted"
}

func tourCommand() *cli.Command {
	return &cli.Command{
		Name:  "tour",
		Usage: "search for the most expensive simple knight path within a time budget",
		Flags: append(tourFlags(),
			&cli.StringFlag{Name: "heuristic", Value: "dense", Usage: "move ordering: " + strings.Join(tour.HeuristicNames, ", ")},
			&cli.BoolFlag{Name: "progress", Usage: "report every improvement on stderr"},
			&cli.BoolFlag{Name: "list", Usage: "also list the path step by step"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, rules, err := loadRules(cmd)
			if err != nil {
				return err
			}
			start, err := coordFlag(cmd, "start", rules.Board(), board.Start)
			if err != nil {
				return err
			}
			h, err := tour.HeuristicByName(cmd.String("heuristic"), cmd.Uint64("seed"))
			if err != nil {
				return err
			}
			opts, err := tourOptions(cmd)
			if err != nil {
				return err
			}
			opts = append(opts, tour.WithHeuristic(h))
			if cmd.Bool("progress") {
				errOut := cmd.Root().ErrWriter
				opts = append(opts, tour.WithProgress(func(p tour.Progress) {
					fmt.Fprintf(errOut, "%8v  cost %4d  length %4d  nodes %d\n", p.Elapsed.Round(time.Millisecond), p.Cost, len(p.Path), p.Nodes)
				}))
			}

			res, err := tour.NewSearcher(rules, opts...).Search(ctx, start)
			if err != nil {
				return err
			}

			w := out(cmd)
			if !res.Found() {
				fmt.Fprintf(w, "%s: no path found from %v (%s, %d nodes)\n", name, start, tourStatus(res), res.Nodes)
				return nil
			}
			fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s: %s path from %v cost %d over %d cells", name, res.Heuristic, start, res.Cost, len(res.Path))))
			fmt.Fprintf(w, "%s, %d nodes, %d improvements, %v\n\n", tourStatus(res), res.Nodes, res.Improvements, res.Elapsed.Round(time.Millisecond))

			order := make([]int, len(res.Path))
			for i := range order {
				order[i] = i
			}
			render.Fprint(w, newRenderer(cmd, 3).PathGrid(rules.Board(), res.Path, order))
			if cmd.Bool("list") {
				costs, err := accumulatedCosts(rules, res.Path)
				if err != nil {
					return err
				}
				fmt.Fprintln(w)
				fmt.Fprint(w, newRenderer(cmd, 1).PathList(res.Path, costs))
			}
			return nil
		},
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "run several tour heuristics in parallel and rank them",
		Flags: append(tourFlags(),
			&cli.StringSliceFlag{Name: "heuristic", Usage: "heuristics to compare (default: all)"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, rules, err := loadRules(cmd)
			if err != nil {
				return err
			}
			start, err := coordFlag(cmd, "start", rules.Board(), board.Start)
			if err != nil {
				return err
			}
			opts, err := tourOptions(cmd)
			if err != nil {
				return err
			}

			results, err := tour.Compare(ctx, rules, start, cmd.StringSlice("heuristic"), cmd.Uint64("seed"), opts...)
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s: heuristics from %v, best first", name, start)))
			for rank, res := range results {
				fmt.Fprintf(w, "%d. %-9s cost %4d  length %4d  nodes %8d  %v  %s\n",
					rank+1, res.Heuristic, res.Cost, len(res.Path), res.Nodes, res.Elapsed.Round(time.Millisecond), tourStatus(res))
			}
			return nil
		},
	}
}

func movesCommand() *cli.Command {
	return &cli.Command{
		Name:  "moves",
		Usage: "list the legal knight moves from a cell",
		Flags: append(boardFlags(),
			&cli.StringFlag{Name: "at", Usage: `cell as "row,col" (default: the S cell)`},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, rules, err := loadRules(cmd)
			if err != nil {
				return err
			}
			from, err := coordFlag(cmd, "at", rules.Board(), board.Start)
			if err != nil {
				return err
			}
			piece, ok := rules.Board().Lookup(from)
			if !ok {
				return errors.Wrapf(engine.ErrOutOfBounds, "%v", from)
			}
			moves, err := rules.PossibleMoves(from)
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintf(w, "From %v (%s): %d moves\n", from, piece.Name(), len(moves))
			overlay := map[board.Coord]string{from: render.KnightMarker}
			for i, m := range moves {
				cost, err := rules.CostAt(m)
				if err != nil {
					return err
				}
				via := ""
				if !engine.IsKnightMove(m.Sub(from)) {
					via = " via teleport"
				}
				fmt.Fprintf(w, "  %d. %v %s, cost %d%s\n", i+1, m, rules.Board().Get(m).Name(), cost, via)
				overlay[m] = fmt.Sprint(i + 1)
			}
			fmt.Fprintln(w)
			render.Fprint(w, newRenderer(cmd, 1).Board(rules.Board(), overlay))
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "draw a board",
		Flags: append(boardFlags(),
			&cli.StringFlag{Name: "knight", Usage: `draw the knight on "row,col"`},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, rules, err := loadRules(cmd)
			if err != nil {
				return err
			}
			b := rules.Board()
			r := newRenderer(cmd, 1)

			text := r.Board(b, nil)
			if raw := cmd.String("knight"); raw != "" {
				pos, err := board.ParseCoord(raw)
				if err != nil {
					return errors.WithMessage(err, "--knight")
				}
				if !b.InBounds(pos) {
					return errors.Wrapf(engine.ErrOutOfBounds, "%v", pos)
				}
				text = r.Knight(b, pos)
			}

			w := out(cmd)
			fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (%dx%d)", name, b.Height(), b.Width())))
			render.Fprint(w, text)
			return nil
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "validate board files (default: every board in the library)",
		ArgsUsage: "[files...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var results []validate.Result
			if cmd.NArg() == 0 {
				var err error
				if results, err = validate.Dir(ctx, cmd.String("boards-dir")); err != nil {
					return err
				}
			} else {
				for _, path := range cmd.Args().Slice() {
					results = append(results, validate.File(ctx, path))
				}
			}
			if !validate.Print(out(cmd), results) {
				return errors.New("some boards are invalid")
			}
			return nil
		},
	}
}

func boardsCommand() *cli.Command {
	return &cli.Command{
		Name:  "boards",
		Usage: "list the boards in the library",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lib, err := config.NewManager(cmd.String("boards-dir"))
			if err != nil {
				return err
			}
			infos, err := lib.ListBoards()
			if err != nil {
				return err
			}
			defaultName, _ := lib.GetDefault()

			w := out(cmd)
			fmt.Fprintf(w, "Boards in %s (%d):\n", lib.Dir(), len(infos))
			for _, info := range infos {
				marker := " "
				if info.BoardID == defaultName {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %-12s %3dx%-3d  landable %4d  teleports %d\n",
					marker, info.BoardID, info.Height, info.Width, info.Landable, info.Teleports)
			}
			return nil
		},
	}
}
