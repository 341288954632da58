// Package store implements the durable, crash-safe persistence layer
// described in spec §4.2: sessions, rooms, sent message ids, and the
// store-first pending-email queue, all on an embedded SQLite database with
// WAL journaling enabled so a crash mid-tick never leaves a torn write.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wanqianwin-jpg/aimp/protocol"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	wire_json  TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'negotiating',
	updated_at REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS rooms (
	room_id    TEXT PRIMARY KEY,
	wire_json  TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'open',
	updated_at REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS sent_messages (
	session_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	PRIMARY KEY (session_id, message_id)
);
CREATE TABLE IF NOT EXISTS pending_emails (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT,
	room_id       TEXT,
	received_at   REAL NOT NULL,
	sender        TEXT NOT NULL,
	subject       TEXT NOT NULL,
	body          TEXT NOT NULL,
	protocol_json TEXT,
	processed     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_pending_session ON pending_emails (session_id, processed);
CREATE INDEX IF NOT EXISTS idx_pending_room ON pending_emails (room_id, processed);
`

// Store is a single embedded-SQLite-backed persistence handle. It is safe
// for concurrent use; the poll loop itself is single-threaded by design.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path, enables
// WAL journaling, and ensures the schema exists. path may be ":memory:" for
// tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, wrap("open", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, wrap("open", err)
	}
	db.SetMaxOpenConns(1) // mattn/go-sqlite3 is not safe for concurrent writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, wrap("set journal mode", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, wrap("create schema", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return wrap("close", s.db.Close())
}

func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// SaveSession upserts a Session by primary key (§4.2 save).
func (s *Store) SaveSession(sess *protocol.Session) error {
	data, err := sess.ToWire()
	if err != nil {
		return wrap("save session: marshal", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (session_id, wire_json, status, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET wire_json = excluded.wire_json, status = excluded.status, updated_at = excluded.updated_at`,
		sess.SessionID, string(data), sess.Status, now(),
	)
	return wrap("save session", err)
}

// LoadSession loads a Session by id, returning (nil, nil) if absent (§4.2 load).
func (s *Store) LoadSession(id string) (*protocol.Session, error) {
	var data string
	err := s.db.QueryRow(`SELECT wire_json FROM sessions WHERE session_id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("load session", err)
	}
	sess, err := protocol.SessionFromWire([]byte(data))
	if err != nil {
		return nil, wrap("load session: unmarshal", err)
	}
	return sess, nil
}

// SaveRoom upserts a Room by primary key (§4.2 save).
func (s *Store) SaveRoom(room *protocol.Room) error {
	data, err := room.ToWire()
	if err != nil {
		return wrap("save room: marshal", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO rooms (room_id, wire_json, status, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(room_id) DO UPDATE SET wire_json = excluded.wire_json, status = excluded.status, updated_at = excluded.updated_at`,
		room.RoomID, string(data), room.Status, now(),
	)
	return wrap("save room", err)
}

// LoadRoom loads a Room by id, returning (nil, nil) if absent (§4.2 load).
func (s *Store) LoadRoom(id string) (*protocol.Room, error) {
	var data string
	err := s.db.QueryRow(`SELECT wire_json FROM rooms WHERE room_id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("load room", err)
	}
	room, err := protocol.RoomFromWire([]byte(data))
	if err != nil {
		return nil, wrap("load room: unmarshal", err)
	}
	return room, nil
}

// LoadOpenRooms returns every Room with status = open (§4.2 load_open_rooms).
func (s *Store) LoadOpenRooms() ([]*protocol.Room, error) {
	rows, err := s.db.Query(`SELECT wire_json FROM rooms WHERE status = ? ORDER BY updated_at ASC`, protocol.RoomOpen)
	if err != nil {
		return nil, wrap("load open rooms", err)
	}
	defer rows.Close()
	var result []*protocol.Room
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, wrap("load open rooms: scan", err)
		}
		room, err := protocol.RoomFromWire([]byte(data))
		if err != nil {
			return nil, wrap("load open rooms: unmarshal", err)
		}
		result = append(result, room)
	}
	return result, wrap("load open rooms: iterate", rows.Err())
}

// LoadOpenSessions returns every Session with status = negotiating, mirroring
// LoadOpenRooms (used by the status command and not by the tick loop itself,
// which routes by id rather than scanning).
func (s *Store) LoadOpenSessions() ([]*protocol.Session, error) {
	rows, err := s.db.Query(`SELECT wire_json FROM sessions WHERE status = ? ORDER BY updated_at ASC`, protocol.SessionNegotiating)
	if err != nil {
		return nil, wrap("load open sessions", err)
	}
	defer rows.Close()
	var result []*protocol.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, wrap("load open sessions: scan", err)
		}
		sess, err := protocol.SessionFromWire([]byte(data))
		if err != nil {
			return nil, wrap("load open sessions: unmarshal", err)
		}
		result = append(result, sess)
	}
	return result, wrap("load open sessions: iterate", rows.Err())
}

// SavePending inserts a single pending-email row and returns its generated id
// (§4.2 save_pending).
func (s *Store) SavePending(p PendingEmail) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO pending_emails (session_id, room_id, received_at, sender, subject, body, protocol_json, processed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		nullable(p.SessionID), nullable(p.RoomID), p.ReceivedAt, p.From, p.Subject, p.Body, nullable(p.ProtocolJSON),
	)
	if err != nil {
		return 0, wrap("save pending", err)
	}
	id, err := res.LastInsertId()
	return id, wrap("save pending: last insert id", err)
}

// LoadPendingForSession returns the unprocessed rows for sessionID, ordered
// by received_at ascending (§4.2 load_pending_for_session).
func (s *Store) LoadPendingForSession(sessionID string) ([]PendingEmail, error) {
	return s.loadPending(`session_id = ? AND processed = 0`, sessionID)
}

// LoadPendingForRoom returns the unprocessed rows for roomID, ordered by
// received_at ascending (§4.2 load_pending_for_room).
func (s *Store) LoadPendingForRoom(roomID string) ([]PendingEmail, error) {
	return s.loadPending(`room_id = ? AND processed = 0`, roomID)
}

// LoadUnrouted returns unprocessed rows with no session_id or room_id —
// member-command, invite, and unknown-sender traffic awaiting dispatch.
func (s *Store) LoadUnrouted() ([]PendingEmail, error) {
	return s.loadPending(`session_id IS NULL AND room_id IS NULL AND processed = 0`)
}

func (s *Store) loadPending(where string, args ...any) ([]PendingEmail, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, room_id, received_at, sender, subject, body, protocol_json, processed
		 FROM pending_emails WHERE `+where+` ORDER BY received_at ASC`,
		args...,
	)
	if err != nil {
		return nil, wrap("load pending", err)
	}
	defer rows.Close()
	var result []PendingEmail
	for rows.Next() {
		var p PendingEmail
		var sessionID, roomID, protocolJSON sql.NullString
		var processed int
		if err := rows.Scan(&p.ID, &sessionID, &roomID, &p.ReceivedAt, &p.From, &p.Subject, &p.Body, &protocolJSON, &processed); err != nil {
			return nil, wrap("load pending: scan", err)
		}
		p.SessionID = sessionID.String
		p.RoomID = roomID.String
		p.ProtocolJSON = protocolJSON.String
		p.Processed = processed != 0
		result = append(result, p)
	}
	return result, wrap("load pending: iterate", rows.Err())
}

// MarkProcessed flips processed = true for a pending row (§4.2
// mark_processed, I6 at-most-once).
func (s *Store) MarkProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE pending_emails SET processed = 1 WHERE id = ?`, id)
	return wrap("mark processed", err)
}

// SaveMessageID records that messageID was sent on behalf of sessionID,
// deduplicated by composite key (§4.2 save_message_id).
func (s *Store) SaveMessageID(sessionID, messageID string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO sent_messages (session_id, message_id) VALUES (?, ?)`, sessionID, messageID)
	return wrap("save message id", err)
}

// LoadMessageIDs returns every message id recorded for sessionID (§4.2
// load_message_ids).
func (s *Store) LoadMessageIDs(sessionID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT message_id FROM sent_messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, wrap("load message ids", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrap("load message ids: scan", err)
		}
		ids = append(ids, id)
	}
	return ids, wrap("load message ids: iterate", rows.Err())
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
