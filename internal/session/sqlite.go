package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteDB is the file-backed session database shared by every session of
// one storefront process.
type SQLiteDB struct {
	db  *sql.DB
	log logrus.FieldLogger
}

func OpenSQLite(path string, log logrus.FieldLogger) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	return &SQLiteDB{db: db, log: log}, nil
}

func (s *SQLiteDB) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{
		MigrationsTable: "session_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (s *SQLiteDB) ForSession(sessionID string) *SQLiteStore {
	return &SQLiteStore{
		db:        s.db,
		sessionID: sessionID,
		log:       s.log.WithField("session_id", sessionID),
	}
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

type SQLiteStore struct {
	db        *sql.DB
	sessionID string
	log       logrus.FieldLogger
}

func (s *SQLiteStore) Load(ctx context.Context) (*domain.Session, error) {
	query := `
		SELECT field, value
		FROM session_fields
		WHERE session_id = ?
	`

	rows, err := s.db.QueryContext(ctx, query, s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query session: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	raw := make(map[string][]byte, len(fields))
	for rows.Next() {
		var field string
		var value []byte
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("%w: failed to scan session field: %v", domain.ErrPersistence, err)
		}
		raw[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", domain.ErrPersistence, err)
	}

	return decodeFields(raw, s.log), nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess *domain.Session) error {
	encoded, err := encodeFields(sess)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, f := range fields {
		v := encoded[f]
		if v == nil {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM session_fields WHERE session_id = ? AND field = ?`,
				s.sessionID, f)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO session_fields (session_id, field, value, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (session_id, field) DO UPDATE
				SET value = excluded.value, updated_at = excluded.updated_at`,
				s.sessionID, f, v, now)
		}
		if err != nil {
			return fmt.Errorf("%w: failed to write %s: %v", domain.ErrPersistence, f, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit session: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Close is a no-op; the database is owned by SQLiteDB.
func (s *SQLiteStore) Close() error {
	return nil
}
