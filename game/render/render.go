// Package render draws boards and paths as text for terminals and API
// responses.
package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wricardo/knightboard/game/board"
)

// KnightMarker is drawn over the knight's cell.
const KnightMarker = "K"

var (
	pieceStyles = map[board.Piece]lipgloss.Style{
		board.Start:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		board.End:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		board.Empty:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		board.Barrier:  lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8")),
		board.Water:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		board.Rock:     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		board.Teleport: lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		board.Lava:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
	overlayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// Renderer formats boards. The zero value is not usable; call New.
type Renderer struct {
	color      bool
	valueWidth int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithColor enables ANSI colouring of pieces and overlay values.
func WithColor(color bool) Option {
	return func(r *Renderer) { r.color = color }
}

// WithValueWidth sets how many characters of each cell are shown. Longer
// values are truncated.
func WithValueWidth(w int) Option {
	return func(r *Renderer) {
		if w > 0 {
			r.valueWidth = w
		}
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{valueWidth: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Board draws b with overlay values replacing the pieces at their positions.
// Cells are left-aligned to the value width and separated by one space.
func (r *Renderer) Board(b *board.Board, overlay map[board.Coord]string) string {
	var sb strings.Builder
	for row := 0; row < b.Height(); row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for col := 0; col < b.Width(); col++ {
			pos := board.C(row, col)
			text, over := overlay[pos]
			if !over {
				text = b.Get(pos).String()
			}
			if len(text) > r.valueWidth {
				text = text[:r.valueWidth]
			}
			if col < b.Width()-1 {
				text = fmt.Sprintf("%-*s", r.valueWidth, text)
			}
			if r.color {
				if over {
					text = overlayStyle.Render(text)
				} else if style, ok := pieceStyles[b.Get(pos)]; ok {
					text = style.Render(text)
				}
			}
			if col > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
	}
	return sb.String()
}

// Knight draws b with the knight marker at pos.
func (r *Renderer) Knight(b *board.Board, pos board.Coord) string {
	return r.Board(b, map[board.Coord]string{pos: KnightMarker})
}

// PathGrid draws b with every cell of path replaced by its accumulated cost.
func (r *Renderer) PathGrid(b *board.Board, path []board.Coord, costs []int) string {
	overlay := make(map[board.Coord]string, len(path))
	for i, pos := range path {
		if i < len(costs) {
			overlay[pos] = strconv.Itoa(costs[i])
		} else {
			overlay[pos] = strconv.Itoa(i)
		}
	}
	return r.Board(b, overlay)
}

// PathList lists the steps of path, one per line.
func (r *Renderer) PathList(path []board.Coord, costs []int) string {
	var sb strings.Builder
	for i, pos := range path {
		cost := 0
		if i < len(costs) {
			cost = costs[i]
		}
		fmt.Fprintf(&sb, "Step: %d\tPath cost: %d\tPosition: %v\n", i, cost, pos)
	}
	return sb.String()
}

// AccumulatedCosts sums per-step costs into the running total at every
// position of a path. The first position is free.
func AccumulatedCosts(steps []int) []int {
	out := make([]int, len(steps))
	total := 0
	for i, s := range steps {
		if i > 0 {
			total += s
		}
		out[i] = total
	}
	return out
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Fprint writes block to w, centred when w is a terminal.
func Fprint(w io.Writer, block string) {
	indent := 0
	if IsTerminal(w) {
		if width, _, err := term.GetSize(int(w.(*os.File).Fd())); err == nil {
			indent = (width - blockWidth(block)) / 2
		}
	}
	prefix := strings.Repeat(" ", max(indent, 0))
	for _, line := range strings.Split(block, "\n") {
		if line == "" {
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "%s%s\n", prefix, line)
	}
}

func blockWidth(block string) int {
	width := 0
	for _, line := range strings.Split(block, "\n") {
		width = max(width, lipgloss.Width(line))
	}
	return width
}
