// Package storage keeps a ledger of finished games in an in-memory SQLite
// database. Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/snek-arena/internal/core"
	"github.com/vovakirdan/snek-arena/internal/multiplayer"
	"github.com/vovakirdan/snek-arena/internal/wire"
)

// Store manages the SQLite connection backing the ledger.
type Store struct {
	db *sql.DB
}

// MatchRecord is one finished game as stored in the ledger.
type MatchRecord struct {
	ID         int64
	SessionID  string
	Players    []core.PlayerID
	Result     wire.Result
	Winner     core.PlayerID
	Reason     string
	Ticks      uint64
	Broadcasts uint64
	StartedAt  time.Time
	EndedAt    time.Time
}

// Duration returns how long the game ran.
func (r MatchRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Stats aggregates the ledger.
type Stats struct {
	Games       int
	Wins        int
	Ties        int
	Timeouts    int
	AvgDuration time.Duration
}

// Open creates an empty in-memory ledger and runs migrations.
func Open() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// Every pooled connection to :memory: would see its own database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL UNIQUE,
			players TEXT NOT NULL,
			result INTEGER NOT NULL,
			winner INTEGER NOT NULL DEFAULT 0,
			end_reason TEXT NOT NULL,
			ticks INTEGER NOT NULL DEFAULT 0,
			broadcasts INTEGER NOT NULL DEFAULT 0,
			started_ms INTEGER NOT NULL DEFAULT 0,
			ended_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_matches_ended ON matches(ended_ms DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection. The ledger is gone afterwards.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveMatch records a finished game and returns its row id.
func (s *Store) SaveMatch(r MatchRecord) (int64, error) {
	var started int64
	if !r.StartedAt.IsZero() {
		started = r.StartedAt.UnixMilli()
	}
	res, err := s.db.Exec(
		`INSERT INTO matches
		 (session_id, players, result, winner, end_reason, ticks, broadcasts, started_ms, ended_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID,
		formatPlayers(r.Players),
		int(r.Result),
		int(r.Winner),
		r.Reason,
		int64(r.Ticks),
		int64(r.Broadcasts),
		started,
		r.EndedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save match: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

// SaveSummary implements multiplayer.ResultSaver.
func (s *Store) SaveSummary(summary multiplayer.Summary) error {
	_, err := s.SaveMatch(MatchRecord{
		SessionID:  summary.SessionID,
		Players:    summary.Players,
		Result:     summary.Result,
		Winner:     summary.Winner,
		Reason:     string(summary.Reason),
		Ticks:      summary.Ticks,
		Broadcasts: summary.Broadcasts,
		StartedAt:  summary.StartedAt,
		EndedAt:    summary.EndedAt,
	})
	return err
}

var _ multiplayer.ResultSaver = (*Store)(nil)

const matchColumns = `id, session_id, players, result, winner, end_reason, ticks, broadcasts, started_ms, ended_ms`

// Matches returns the most recently ended games first.
func (s *Store) Matches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+matchColumns+`
		 FROM matches
		 ORDER BY ended_ms DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		r, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return records, nil
}

// matchBySession returns the game recorded for sessionID, or nil if none.
func (s *Store) matchBySession(sessionID string) (*MatchRecord, error) {
	row := s.db.QueryRow(`SELECT `+matchColumns+` FROM matches WHERE session_id = ?`, sessionID)
	r, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Stats aggregates every recorded game.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	var avgMs float64
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN result = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN result = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN end_reason = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(CASE WHEN started_ms > 0 THEN ended_ms - started_ms END), 0)
		 FROM matches`,
		int(wire.ResultWin), int(wire.ResultTie), string(multiplayer.EndReasonTimeout),
	).Scan(&st.Games, &st.Wins, &st.Ties, &st.Timeouts, &avgMs)
	if err != nil {
		return Stats{}, fmt.Errorf("storage: cannot get stats: %w", err)
	}
	st.AvgDuration = time.Duration(avgMs * float64(time.Millisecond))
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (MatchRecord, error) {
	var (
		r                 MatchRecord
		players           string
		result, winner    int
		ticks, broadcasts int64
		started, ended    int64
	)
	err := row.Scan(&r.ID, &r.SessionID, &players, &result, &winner, &r.Reason, &ticks, &broadcasts, &started, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("storage: cannot scan row: %w", err)
	}

	r.Players, err = parsePlayers(players)
	if err != nil {
		return r, fmt.Errorf("storage: bad players column %q: %w", players, err)
	}
	r.Result = wire.Result(result)
	r.Winner = core.PlayerID(winner)
	r.Ticks = uint64(ticks)
	r.Broadcasts = uint64(broadcasts)
	if started > 0 {
		r.StartedAt = time.UnixMilli(started)
	}
	r.EndedAt = time.UnixMilli(ended)
	return r, nil
}

// formatPlayers stores ids in join order as "1,2,3".
func formatPlayers(ids []core.PlayerID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}

func parsePlayers(s string) ([]core.PlayerID, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]core.PlayerID, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return nil, err
		}
		ids = append(ids, core.PlayerID(n))
	}
	return ids, nil
}
