package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/halcyonlabs/halcyon/internal/domain"
)

// ActivityStore persists wellness activities in a local SQLite file. Meant
// for local mode, where a Firestore project is not available but activity
// history should still survive restarts.
type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(dbPath string) (*ActivityStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &ActivityStore{db: db}
	if err := store.initTables(); err != nil {
		return nil, fmt.Errorf("initializing tables: %w", err)
	}
	return store, nil
}

func (s *ActivityStore) Close() error {
	return s.db.Close()
}

func (s *ActivityStore) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		timestamp DATETIME NOT NULL,
		duration INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		mood_score INTEGER,
		mood_note TEXT
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating activities table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_activities_user_id ON activities(user_id);",
		"CREATE INDEX IF NOT EXISTS idx_activities_timestamp ON activities(timestamp);",
	}
	for _, stmt := range indexes {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

func (s *ActivityStore) AppendActivity(activity *domain.Activity) error {
	var moodScore sql.NullInt64
	if activity.MoodScore != nil {
		moodScore = sql.NullInt64{Int64: int64(*activity.MoodScore), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO activities (id, user_id, type, name, description, timestamp, duration, completed, mood_score, mood_note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(activity.ID),
		string(activity.UserID),
		activity.Type,
		activity.Name,
		activity.Description,
		activity.Timestamp,
		activity.Duration,
		activity.Completed,
		moodScore,
		activity.MoodNote,
	)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

func (s *ActivityStore) ListActivitiesByUser(userID domain.UserID) ([]*domain.Activity, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, type, name, description, timestamp, duration, completed, mood_score, mood_note
		FROM activities
		WHERE user_id = ?
		ORDER BY timestamp ASC`,
		string(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	var out []*domain.Activity
	for rows.Next() {
		var (
			a         domain.Activity
			id, user  string
			moodScore sql.NullInt64
		)
		if err := rows.Scan(
			&id,
			&user,
			&a.Type,
			&a.Name,
			&a.Description,
			&a.Timestamp,
			&a.Duration,
			&a.Completed,
			&moodScore,
			&a.MoodNote,
		); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		a.ID = domain.ActivityID(id)
		a.UserID = domain.UserID(user)
		if moodScore.Valid {
			v := int(moodScore.Int64)
			a.MoodScore = &v
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}
	return out, nil
}
