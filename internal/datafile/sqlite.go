package datafile

import (
	"database/sql"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// SchemaVersion is the current datafile schema version.
const SchemaVersion = "1"

// DefaultBufferSize is the number of rows held before a write goes to disk.
const DefaultBufferSize = 4096

type point2D struct {
	plot int
	seq  int64
	x, y float64
}

type cellRow struct {
	plot int
	seq  int64
	cell Cell
}

// SQLite writes runs into a SQLite database. Each Open adds a run; rows of
// earlier runs in the same file are kept.
type SQLite struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	plots  int
	run    int64
	bufMax int

	seq    map[int]int64
	points []point2D
	cells  []cellRow

	nPoints int64
	nCells  int64
}

// NewSQLite creates an unopened SQLite sink. bufferSize <= 0 selects
// DefaultBufferSize.
func NewSQLite(bufferSize int) *SQLite {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &SQLite{bufMax: bufferSize}
}

// Open opens or creates the database at path and starts a new run.
func (s *SQLite) Open(path string, plots int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return errors.New("datafile is already open")
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return errors.Wrapf(err, "datafile: open %s", path)
	}
	// One connection keeps writes ordered and the file lock simple.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started TEXT NOT NULL,
			plots INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS points_2d (
			run INTEGER NOT NULL,
			plot INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			PRIMARY KEY (run, plot, seq),
			FOREIGN KEY (run) REFERENCES runs(id)
		);
		CREATE TABLE IF NOT EXISTS colormap (
			run INTEGER NOT NULL,
			plot INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z REAL NOT NULL,
			PRIMARY KEY (run, plot, seq),
			FOREIGN KEY (run) REFERENCES runs(id)
		);
	`)
	if err != nil {
		db.Close()
		return errors.Wrapf(err, "datafile: create schema in %s", path)
	}
	s.db = db

	version, err := s.getMetadataUnlocked("schema_version")
	if err == nil {
		switch version {
		case "":
			err = s.setMetadataUnlocked("schema_version", SchemaVersion)
		case SchemaVersion:
		default:
			err = errors.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
		}
	}
	if err == nil {
		var res sql.Result
		res, err = db.Exec("INSERT INTO runs (started, plots) VALUES (?, ?)",
			time.Now().UTC().Format(time.RFC3339Nano), plots)
		if err == nil {
			s.run, err = res.LastInsertId()
		}
	}
	if err != nil {
		db.Close()
		s.db = nil
		return errors.Wrapf(err, "datafile: %s", path)
	}

	s.path = path
	s.plots = plots
	s.seq = make(map[int]int64)
	s.points = s.points[:0]
	s.cells = s.cells[:0]
	s.nPoints, s.nCells = 0, 0
	return nil
}

// Write2D buffers points for plot.
func (s *SQLite) Write2D(plot int, x, y []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(plot); err != nil {
		return err
	}
	for i := range x {
		s.points = append(s.points, point2D{plot: plot, seq: s.next(plot), x: x[i], y: y[i]})
	}
	return s.maybeFlushUnlocked()
}

// WriteCM buffers color-map cells for plot.
func (s *SQLite) WriteCM(plot int, cells []Cell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(plot); err != nil {
		return err
	}
	for _, c := range cells {
		s.cells = append(s.cells, cellRow{plot: plot, seq: s.next(plot), cell: c})
	}
	return s.maybeFlushUnlocked()
}

func (s *SQLite) writable(plot int) error {
	if s.db == nil {
		return ErrNotOpen
	}
	return checkPlot(plot, s.plots)
}

func (s *SQLite) next(plot int) int64 {
	n := s.seq[plot]
	s.seq[plot] = n + 1
	return n
}

func (s *SQLite) maybeFlushUnlocked() error {
	if len(s.points)+len(s.cells) < s.bufMax {
		return nil
	}
	return s.flushUnlocked()
}

// Flush writes buffered rows to disk.
func (s *SQLite) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotOpen
	}
	return s.flushUnlocked()
}

// flushUnlocked writes buffered rows in one transaction (caller must hold lock).
func (s *SQLite) flushUnlocked() error {
	if len(s.points) == 0 && len(s.cells) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "datafile: begin")
	}
	defer tx.Rollback()

	if len(s.points) > 0 {
		stmt, err := tx.Prepare("INSERT INTO points_2d (run, plot, seq, x, y) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return errors.Wrap(err, "datafile: prepare")
		}
		defer stmt.Close()
		for _, p := range s.points {
			if _, err := stmt.Exec(s.run, p.plot, p.seq, p.x, p.y); err != nil {
				return errors.Wrap(err, "datafile: write 2D point")
			}
		}
	}
	if len(s.cells) > 0 {
		stmt, err := tx.Prepare("INSERT INTO colormap (run, plot, seq, x, y, z) VALUES (?, ?, ?, ?, ?, ?)")
		if err != nil {
			return errors.Wrap(err, "datafile: prepare")
		}
		defer stmt.Close()
		for _, c := range s.cells {
			if _, err := stmt.Exec(s.run, c.plot, c.seq, c.cell.X, c.cell.Y, c.cell.Value); err != nil {
				return errors.Wrap(err, "datafile: write color-map cell")
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "datafile: commit")
	}
	s.nPoints += int64(len(s.points))
	s.nCells += int64(len(s.cells))
	s.points = s.points[:0]
	s.cells = s.cells[:0]
	return nil
}

// Close flushes pending rows and closes the database.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotOpen
	}
	ferr := s.flushUnlocked()
	cerr := s.db.Close()
	s.db = nil
	s.points = s.points[:0]
	s.cells = s.cells[:0]
	if ferr != nil {
		return ferr
	}
	return errors.Wrap(cerr, "datafile: close")
}

// Summary reports what has reached disk for the current or last run.
func (s *SQLite) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := Summary{Path: s.path, Run: s.run, Points: s.nPoints, Cells: s.nCells}
	if s.path != "" {
		if fi, err := os.Stat(s.path); err == nil {
			sum.Bytes = fi.Size()
		}
	}
	return sum
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
