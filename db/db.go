// Package db keeps the presence log: who joined, left or renamed in which
// room. Strokes and canvas images are never stored.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Tk21111/sketchroom/config"
	"github.com/Tk21111/sketchroom/internal/logx"
)

// Operation Types
const (
	OpPresence = iota
	OpSync
)

var (
	ErrNotInitialized = errors.New("presence log not initialized")
	ErrClosed         = errors.New("presence log closed")
)

type DbJob struct {
	Type     int
	Presence config.PresenceEvent
	Result   chan error
}

type Writer struct {
	db *sql.DB

	// mu guards closed; senders hold it shared so Close never closes opCh
	// under them
	mu     sync.RWMutex
	closed bool
	opCh   chan DbJob
	done   chan struct{}
}

var (
	W *Writer
)

func NewWriter(dbPath string) (*Writer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}

	if _, err := db.Exec(`
        PRAGMA journal_mode = WAL;
        PRAGMA synchronous = NORMAL;
        PRAGMA busy_timeout = 5000; -- Wait 5s if db is locked
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			room_id TEXT PRIMARY KEY,
			first_seen INTEGER NOT NULL,
			last_seen INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS presence (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT "",
			op TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_presence_room
		ON presence(room_id, id);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("schema: %w", err)
		}
	}

	w := &Writer{
		db:   db,
		opCh: make(chan DbJob, 10000),
		done: make(chan struct{}),
	}

	stmts, err := w.prepare()
	if err != nil {
		db.Close()
		return nil, err
	}

	go w.writerLoop(stmts)
	return w, nil
}

type statements struct {
	presence *sql.Stmt
	room     *sql.Stmt
}

func (s statements) Close() {
	s.presence.Close()
	s.room.Close()
}

func (w *Writer) prepare() (statements, error) {
	var s statements
	var err error

	s.presence, err = w.db.Prepare(`
		INSERT INTO presence (room_id, user_id, name, op, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return s, fmt.Errorf("prepare presence: %w", err)
	}

	s.room, err = w.db.Prepare(`
		INSERT INTO rooms (room_id, first_seen, last_seen)
		VALUES (?, ?, ?)
		ON CONFLICT(room_id)
		DO UPDATE SET
			last_seen = excluded.last_seen
	`)
	if err != nil {
		s.presence.Close()
		return s, fmt.Errorf("prepare room: %w", err)
	}
	return s, nil
}

func (w *Writer) writerLoop(s statements) {
	defer close(w.done)
	defer s.Close()

	log := logx.Named("db")

	// --- Main Loop ---
	for job := range w.opCh {
		switch job.Type {

		case OpPresence:
			e := job.Presence
			if _, err := s.room.Exec(e.RoomID, e.CreatedAt, e.CreatedAt); err != nil {
				log.Warn("room upsert", zap.String("room", e.RoomID), zap.Error(err))
			}
			if _, err := s.presence.Exec(e.RoomID, e.UserID, e.Name, e.Op, e.CreatedAt); err != nil {
				log.Warn("presence insert", zap.String("room", e.RoomID), zap.Error(err))
			}

		case OpSync:
			job.Result <- nil
		}
	}
}

// Close drains pending writes and closes the database. Writes queued after
// Close are dropped; closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.opCh)
	w.mu.Unlock()

	<-w.done
	return w.db.Close()
}

// --- Public Write Methods ---

// WritePresence queues e without blocking; when the queue is full the row is
// dropped.
func (w *Writer) WritePresence(e config.PresenceEvent) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}

	select {
	case w.opCh <- DbJob{Type: OpPresence, Presence: e}:
		return true
	default:
		logx.Named("db").Warn("presence queue full", zap.String("room", e.RoomID))
		return false
	}
}

// Sync waits until everything queued before it is written.
func (w *Writer) Sync() error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrClosed
	}
	result := make(chan error, 1)
	w.opCh <- DbJob{Type: OpSync, Result: result}
	w.mu.RUnlock()

	return <-result
}

func WritePresence(e config.PresenceEvent) {
	if W == nil {
		return
	}
	W.WritePresence(e)
}

// --- Read Methods ---

// GetPresence returns the newest limit rows for roomID, newest first.
func (w *Writer) GetPresence(roomID string, limit int) ([]config.PresenceEvent, error) {
	rows, err := w.db.Query(`
        SELECT room_id, user_id, name, op, created_at
        FROM presence
        WHERE room_id = ?
        ORDER BY id DESC
        LIMIT ?
    `, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []config.PresenceEvent{}

	for rows.Next() {
		var e config.PresenceEvent
		if err := rows.Scan(&e.RoomID, &e.UserID, &e.Name, &e.Op, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

type Room struct {
	RoomID    string `json:"roomId"`
	FirstSeen int64  `json:"firstSeen"`
	LastSeen  int64  `json:"lastSeen"`
}

// GetRooms lists every room the log has seen, most recently active first.
func (w *Writer) GetRooms() ([]Room, error) {
	rows, err := w.db.Query(`
		SELECT room_id, first_seen, last_seen
		FROM rooms
		ORDER BY last_seen DESC, room_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []Room{}
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.RoomID, &r.FirstSeen, &r.LastSeen); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func GetPresence(roomID string, limit int) ([]config.PresenceEvent, error) {
	if W == nil {
		return nil, ErrNotInitialized
	}
	return W.GetPresence(roomID, limit)
}

func GetRooms() ([]Room, error) {
	if W == nil {
		return nil, ErrNotInitialized
	}
	return W.GetRooms()
}
