package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-hclog"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "reel"
	dbFileName   = "reel.db"
	saveDebounce = 500 * time.Millisecond
)

type Manager struct {
	db        *sql.DB
	logger    hclog.Logger
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   map[string]Position
}

// Open opens the database in the XDG data directory.
func Open(logger hclog.Logger) (*Manager, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, err
	}
	return OpenPath(dbPath, logger)
}

// OpenPath opens the database at dbPath, creating it if needed.
func OpenPath(dbPath string, logger hclog.Logger) (*Manager, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return newManager(db, logger), nil
}

func newManager(db *sql.DB, logger hclog.Logger) *Manager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Manager{db: db, logger: logger}
}

func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	// Flush pending positions
	if err := savePositions(m.db, pending); err != nil {
		m.logger.Warn("failed to flush resume positions", "count", len(pending), "error", err)
	}

	return m.db.Close()
}

// GetPosition returns the saved position for url, or nil when none is
// saved. A position still waiting for the debounce is returned as is.
func (m *Manager) GetPosition(url string) (*Position, error) {
	m.saveMu.Lock()
	p, ok := m.pending[url]
	m.saveMu.Unlock()
	if ok {
		return &p, nil
	}
	return getPosition(m.db, url)
}

// SavePosition records the position of url. Writes are debounced.
func (m *Manager) SavePosition(url string, position, duration time.Duration) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	if m.pending == nil {
		m.pending = make(map[string]Position)
	}
	m.pending[url] = Position{
		URL:       url,
		Position:  position,
		Duration:  duration,
		UpdatedAt: time.Now(),
	}

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(saveDebounce, m.flush)
}

func (m *Manager) flush() {
	m.saveMu.Lock()
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	if err := savePositions(m.db, pending); err != nil {
		m.logger.Warn("failed to save resume positions", "count", len(pending), "error", err)
	}
}

// ClearPosition forgets the saved position of url, including a pending one.
func (m *Manager) ClearPosition(url string) error {
	m.saveMu.Lock()
	delete(m.pending, url)
	m.saveMu.Unlock()
	return clearPosition(m.db, url)
}

func getDBPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}
