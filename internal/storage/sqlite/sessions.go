// Package sqlite persists dictation session statistics. Only metadata
// is stored; the transcript text itself never touches disk.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/voxtype/voxtype/pkg/logger"
	_ "modernc.org/sqlite"
)

// Import logger functions
var (
	String = logger.String
	Error  = logger.Error
)

// SessionRecord is one completed dictation session.
type SessionRecord struct {
	ID           string    `json:"id"`
	FlushedAt    time.Time `json:"flushed_at"`
	Speaker      string    `json:"speaker,omitempty"`
	Language     string    `json:"language,omitempty"`
	Fragments    int       `json:"fragments"`
	RawChars     int       `json:"raw_chars"`
	CleanedChars int       `json:"cleaned_chars"`
	CleanupMode  string    `json:"cleanup_mode"`
	CleanupMs    int64     `json:"cleanup_ms"`
	TriggerMode  string    `json:"trigger_mode"`
}

// Stats is an aggregate over stored sessions.
type Stats struct {
	TotalSessions     int     `json:"total_sessions"`
	TotalRawChars     int64   `json:"total_raw_chars"`
	TotalCleanedChars int64   `json:"total_cleaned_chars"`
	AvgCleanupMs      float64 `json:"avg_cleanup_ms"`
	SessionsToday     int     `json:"sessions_today"`
}

// SessionStorage is a SQLite-based store for session statistics.
type SessionStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSessionStorage opens (and initializes) the database at dbPath.
func NewSessionStorage(dbPath string, log *logger.Logger) (*SessionStorage, error) {
	storageLogger := log.Named("sqlite")
	storageLogger.Info("Initializing SQLite storage", String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	storage := &SessionStorage{db: db, logger: storageLogger}
	if err := storage.initDB(); err != nil {
		db.Close()
		return nil, err
	}
	return storage, nil
}

func (s *SessionStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			flushed_at TIMESTAMP NOT NULL,
			speaker TEXT,
			language TEXT,
			fragments INTEGER NOT NULL DEFAULT 0,
			raw_chars INTEGER NOT NULL,
			cleaned_chars INTEGER NOT NULL,
			cleanup_mode TEXT NOT NULL,
			cleanup_ms INTEGER NOT NULL,
			trigger_mode TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_flushed_at ON sessions(flushed_at)`); err != nil {
		return fmt.Errorf("failed to create flushed_at index: %w", err)
	}
	return nil
}

// StoreSession inserts one session record.
func (s *SessionStorage) StoreSession(record *SessionRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions
		(id, flushed_at, speaker, language, fragments, raw_chars, cleaned_chars, cleanup_mode, cleanup_ms, trigger_mode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.FlushedAt.UTC().Format(time.RFC3339),
		record.Speaker,
		record.Language,
		record.Fragments,
		record.RawChars,
		record.CleanedChars,
		record.CleanupMode,
		record.CleanupMs,
		record.TriggerMode,
	)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Debug("Stored session record", String("id", record.ID))
	return nil
}

// GetRecentSessions returns the most recent sessions, newest first.
func (s *SessionStorage) GetRecentSessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, flushed_at, speaker, language, fragments, raw_chars, cleaned_chars, cleanup_mode, cleanup_ms, trigger_mode
		FROM sessions ORDER BY flushed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var flushedAt string
		var speaker, language sql.NullString
		if err := rows.Scan(&r.ID, &flushedAt, &speaker, &language,
			&r.Fragments, &r.RawChars, &r.CleanedChars, &r.CleanupMode, &r.CleanupMs, &r.TriggerMode); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		r.FlushedAt, _ = time.Parse(time.RFC3339, flushedAt)
		r.Speaker = speaker.String
		r.Language = language.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetStats aggregates all stored sessions.
func (s *SessionStorage) GetStats() (*Stats, error) {
	var stats Stats

	err := s.db.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(raw_chars), 0),
			COALESCE(SUM(cleaned_chars), 0),
			COALESCE(AVG(cleanup_ms), 0)
		FROM sessions`).Scan(
		&stats.TotalSessions,
		&stats.TotalRawChars,
		&stats.TotalCleanedChars,
		&stats.AvgCleanupMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sessions: %w", err)
	}

	todayStart := time.Now().UTC().Truncate(24 * time.Hour).Format(time.RFC3339)
	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM sessions WHERE flushed_at >= ?`, todayStart).Scan(&stats.SessionsToday)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's sessions: %w", err)
	}

	return &stats, nil
}

// Close closes the database connection.
func (s *SessionStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
