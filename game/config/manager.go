package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
	"github.com/wricardo/knightboard/game/service"
)

// BoardExt is the extension of board files in the library directory.
const BoardExt = ".txt"

// DefaultBoard is loaded as the default when present.
const DefaultBoard = "8x8"

var (
	ErrBoardNotFound = service.ErrBoardNotFound
	ErrInvalidBoard  = errors.New("invalid board")
	ErrInvalidName   = errors.New("invalid board name")
)

// Manager handles board loading and caching
type Manager struct {
	boardDir     string
	defaultName  string
	defaultBoard *board.Board
	boards       map[string]*board.Board
	mu           sync.RWMutex
}

var _ service.BoardLibrary = (*Manager)(nil)

// NewManager creates a new board library over boardDir
func NewManager(boardDir string) (*Manager, error) {
	if _, err := os.Stat(boardDir); os.IsNotExist(err) {
		return nil, errors.Errorf("board directory does not exist: %s", boardDir)
	}

	m := &Manager{
		boardDir: boardDir,
		boards:   make(map[string]*board.Board),
	}
	if err := m.loadDefaultBoard(); err != nil {
		return nil, errors.WithMessage(err, "failed to load default board")
	}
	return m, nil
}

// Dir returns the library directory.
func (m *Manager) Dir() string {
	return m.boardDir
}

// LoadBoard loads a board by name. The caller receives its own copy.
func (m *Manager) LoadBoard(name string) (*board.Board, error) {
	b, err := m.cached(name)
	if err != nil {
		return nil, err
	}
	return b.Clone(), nil
}

func (m *Manager) cached(name string) (*board.Board, error) {
	name = strings.TrimSuffix(name, BoardExt)
	if err := checkName(name); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if b, exists := m.boards[name]; exists {
		m.mu.RUnlock()
		return b, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if b, exists := m.boards[name]; exists {
		return b, nil
	}

	b, err := board.Load(filepath.Join(m.boardDir, name+BoardExt))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(ErrBoardNotFound, name)
		}
		return nil, err
	}
	if err := engine.ValidateBoard(b); err != nil {
		return nil, errors.Wrapf(ErrInvalidBoard, "%s: %v", name, err)
	}

	m.boards[name] = b
	klog.V(2).Infof("loaded board %s (%dx%d)", name, b.Height(), b.Width())
	return b, nil
}

// ListBoards describes every valid board in the library, sorted by name.
// Files that fail to parse or validate are skipped.
func (m *Manager) ListBoards() ([]*service.BoardInfo, error) {
	entries, err := os.ReadDir(m.boardDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read board directory")
	}

	var infos []*service.BoardInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), BoardExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), BoardExt)
		b, err := m.cached(name)
		if err != nil {
			klog.V(1).Infof("skipping board %s: %v", entry.Name(), err)
			continue
		}
		infos = append(infos, service.DescribeBoard(name, b))
	}
	slices.SortFunc(infos, func(a, b *service.BoardInfo) int { return strings.Compare(a.BoardID, b.BoardID) })
	return infos, nil
}

// GetDefault returns the default board and its name
func (m *Manager) GetDefault() (string, *board.Board) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultName, m.defaultBoard
}

// SetDefault sets the default board by name
func (m *Manager) SetDefault(name string) error {
	b, err := m.cached(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = strings.TrimSuffix(name, BoardExt)
	m.defaultBoard = b
	return nil
}

// RefreshCache drops cached boards and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.boards = make(map[string]*board.Board)
	m.mu.Unlock()
	return m.loadDefaultBoard()
}

// SaveBoard validates b and writes it to the library
func (m *Manager) SaveBoard(name string, b *board.Board) error {
	name = strings.TrimSuffix(name, BoardExt)
	if err := checkName(name); err != nil {
		return err
	}
	if err := engine.ValidateBoard(b); err != nil {
		return errors.Wrapf(ErrInvalidBoard, "%s: %v", name, err)
	}

	if err := board.Write(filepath.Join(m.boardDir, name+BoardExt), b); err != nil {
		return errors.Wrap(err, "failed to write board file")
	}

	m.mu.Lock()
	m.boards[name] = b.Clone()
	m.mu.Unlock()
	klog.V(1).Infof("saved board %s", name)
	return nil
}

func (m *Manager) loadDefaultBoard() error {
	name := DefaultBoard
	b, err := m.cached(name)
	if err != nil {
		infos, listErr := m.ListBoards()
		if listErr != nil || len(infos) == 0 {
			klog.Warningf("no usable boards in %s, using built-in default", m.boardDir)
			name, b = "minimal", createMinimalBoard()
		} else {
			name = infos[0].BoardID
			if b, err = m.cached(name); err != nil {
				name, b = "minimal", createMinimalBoard()
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = name
	m.defaultBoard = b
	return nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

// createMinimalBoard is the board used when the library has none.
func createMinimalBoard() *board.Board {
	b := board.NewBoard(5, 5)
	b.Set(board.C(0, 0), board.Start)
	b.Set(board.C(4, 4), board.End)
	return b
}
