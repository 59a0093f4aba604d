// Command probe drives a running knightboard server end to end: it opens a
// session, asks for the cheapest and the longest path between the board's
// start and end, and replays both through the validate endpoint to check
// that the reported costs match a fresh walk of the board.
//
// Usage:
//
//	probe -url=http://localhost:8080 [-board=lava] [-budget=2s] [-watch]
//
// With -watch the session's websocket events are printed as they arrive.
// The exit status is non-zero when any check fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/service"
)

var (
	flagURL       = flag.String("url", "http://localhost:8080", "Knightboard server URL.")
	flagBoard     = flag.String("board", "", "Board name from the server library; empty selects the default.")
	flagHeuristic = flag.String("heuristic", "dense", "Tour heuristic.")
	flagBudget    = flag.Duration("budget", 2*time.Second, "Tour search budget.")
	flagWatch     = flag.Bool("watch", false, "Print the session's live events.")
	flagKeep      = flag.Bool("keep", false, "Keep the session on the server when done.")
)

// Report is what one probe run observed.
type Report struct {
	SessionID string
	Board     string
	Plan      *service.PlanResult
	Tour      *service.TourResult
	// Failures lists every check that did not hold.
	Failures []string
}

func (r *Report) fail(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// OK reports whether every check held.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := NewClient(*flagURL)
	klog.Infof("Probing knightboard server at %s", *flagURL)

	var onSession func(id string)
	if *flagWatch {
		onSession = func(id string) {
			events := make(chan service.Event, 64)
			go func() {
				if err := client.Watch(ctx, id, events); err != nil {
					klog.Warningf("watch: %v", err)
				}
			}()
			go func() {
				for e := range events {
					fmt.Printf("  [%s] %s: %s\n", e.Timestamp.Format("15:04:05.000"), e.Type, e.Message)
				}
			}()
		}
	}

	r, err := probe(ctx, client, *flagBoard, service.TourRequest{
		Heuristic: *flagHeuristic,
		BudgetMS:  int(flagBudget.Milliseconds()),
	}, onSession)
	if err != nil {
		klog.Exitf("probe failed: %+v", err)
	}
	if !*flagKeep {
		if err := client.DeleteSession(ctx, r.SessionID); err != nil {
			klog.Warningf("delete session %s: %v", r.SessionID, err)
		}
	}

	printReport(os.Stdout, r)
	if !r.OK() {
		os.Exit(1)
	}
}

// probe runs the checks against one new session. onSession, when set, is
// called with the session ID before any search runs.
func probe(ctx context.Context, c *Client, boardName string, tourReq service.TourRequest, onSession func(id string)) (*Report, error) {
	info, err := c.CreateSession(ctx, service.CreateSessionRequest{Board: boardName})
	if err != nil {
		return nil, err
	}
	r := &Report{SessionID: info.ID, Board: info.BoardName}
	if info.Start == nil || info.End == nil {
		return r, errors.Errorf("board %q needs a start and an end cell", info.BoardName)
	}
	if onSession != nil {
		onSession(info.ID)
	}

	if r.Plan, err = c.Plan(ctx, info.ID, service.PlanRequest{PriorityQueue: true}); err != nil {
		return r, err
	}
	fifo, err := c.Plan(ctx, info.ID, service.PlanRequest{})
	if err != nil {
		return r, err
	}
	if fifo.Reachable != r.Plan.Reachable || fifo.Cost != r.Plan.Cost {
		r.fail("queue disciplines disagree: priority cost %d, fifo cost %d", r.Plan.Cost, fifo.Cost)
	}
	if r.Plan.Reachable {
		checkPath(ctx, c, r, "plan", r.Plan.Path, r.Plan.Cost)
	} else {
		r.fail("end %v unreachable from start %v", *info.End, *info.Start)
	}

	tourReq.End = info.End
	if r.Tour, err = c.Tour(ctx, info.ID, tourReq); err != nil {
		return r, err
	}
	if r.Tour.Found {
		// Tour costs include the start cell; validate counts moves only.
		checkPath(ctx, c, r, "tour", r.Tour.Path, r.Tour.Cost-r.Tour.StepCosts[0])
		if r.Plan.Reachable && r.Tour.Cost < r.Plan.Cost {
			r.fail("tour cost %d is below the cheapest path cost %d", r.Tour.Cost, r.Plan.Cost)
		}
	}
	return r, nil
}

// checkPath replays path through the validate endpoint and compares the cost.
func checkPath(ctx context.Context, c *Client, r *Report, what string, path []board.Coord, want int) {
	v, err := c.Validate(ctx, r.SessionID, path)
	if err != nil {
		r.fail("%s: validate: %v", what, err)
		return
	}
	if !v.Valid {
		r.fail("%s: invalid at step %d: %s", what, v.FailedStep, v.Reason)
		return
	}
	if v.Cost != want {
		r.fail("%s: reported cost %d, walked cost %d", what, want, v.Cost)
	}
}

func printReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Session %s on board %s\n", r.SessionID, r.Board)
	if r.Plan != nil {
		if r.Plan.Reachable {
			fmt.Fprintf(w, "Cheapest: %v -> %v cost %d in %d moves (%d pops)\n",
				r.Plan.Start, r.Plan.Goal, r.Plan.Cost, len(r.Plan.Path)-1, r.Plan.Pops)
		} else {
			fmt.Fprintf(w, "Cheapest: %v -> %v unreachable\n", r.Plan.Start, r.Plan.Goal)
		}
	}
	if r.Tour != nil {
		if r.Tour.Found {
			fmt.Fprintf(w, "Longest (%s): cost %d over %d cells, %d nodes\n",
				r.Tour.Heuristic, r.Tour.Cost, r.Tour.Length, r.Tour.Nodes)
		} else {
			fmt.Fprintf(w, "Longest (%s): no path found\n", r.Tour.Heuristic)
		}
	}
	if r.OK() {
		fmt.Fprintln(w, "✅ All checks passed")
		return
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "❌ %s\n", f)
	}
}
