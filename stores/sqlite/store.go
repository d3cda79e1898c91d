package sqlite

import (
	"context"
	"database/sql"
	"drawboard-server/core"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS drawings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER REFERENCES users(id),
	name TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_drawings_user_id ON drawings (user_id);`

const drawingColumns = "id, user_id, name, data, created_at, updated_at"

type sqliteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens the SQLite database at dataSourceName and creates the
// users and drawings tables if they do not exist yet.
func NewStore(dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", withPragmas(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", dataSourceName, err)
	}

	// Every query must see the same database, including ":memory:" ones.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to sqlite database %s: %w", dataSourceName, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &sqliteStore{db: db, now: time.Now}, nil
}

func withPragmas(dataSourceName string) string {
	sep := "?"
	if strings.Contains(dataSourceName, "?") {
		sep = "&"
	}
	return dataSourceName + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// isConstraint reports whether err is the given SQLite constraint
// violation. Drivers without extended result codes only report the
// primary code, so the message is checked as well.
func isConstraint(err error, extended int, msg string) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == extended || (code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), msg))
}

func (s *sqliteStore) CreateUser(ctx context.Context, user *core.NewUser) (*core.User, error) {
	log := logrus.WithField("username", user.Username)

	hash, err := core.HashPassword(user.Password)
	if err != nil {
		log.WithError(err).Error("Failed to hash password")
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, "INSERT INTO users (username, password) VALUES (?, ?)", user.Username, hash)
	if err != nil {
		if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE constraint failed") {
			log.Warn("Username already exists")
			return nil, fmt.Errorf("create user %q: %w", user.Username, core.ErrUsernameTaken)
		}
		log.WithError(err).Error("Failed to create user")
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	log.WithField("user_id", id).Info("User created successfully")
	return &core.User{ID: id, Username: user.Username, PasswordHash: hash}, nil
}

func (s *sqliteStore) GetUser(ctx context.Context, id int64) (*core.User, error) {
	return s.queryUser(ctx, logrus.WithField("user_id", id), "SELECT id, username, password FROM users WHERE id = ?", id)
}

func (s *sqliteStore) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.queryUser(ctx, logrus.WithField("username", username), "SELECT id, username, password FROM users WHERE username = ?", username)
}

func (s *sqliteStore) queryUser(ctx context.Context, log *logrus.Entry, query string, arg any) (*core.User, error) {
	var user core.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("User not found")
			return nil, fmt.Errorf("user %v: %w", arg, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve user")
		return nil, err
	}
	return &user, nil
}

func (s *sqliteStore) SaveDrawing(ctx context.Context, drawing *core.NewDrawing) (*core.Drawing, error) {
	nd := *drawing
	core.FillTimestamps(&nd, s.now())

	var userID sql.NullInt64
	if nd.UserID != nil {
		userID = sql.NullInt64{Int64: *nd.UserID, Valid: true}
	}

	log := logrus.WithField("data_length", len(nd.Data))

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO drawings (user_id, name, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		userID, nd.Name, nd.Data, nd.CreatedAt, nd.UpdatedAt)
	if err != nil {
		if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY constraint failed") {
			log.WithField("user_id", userID.Int64).Warn("Drawing owner does not exist")
			return nil, fmt.Errorf("save drawing for user %d: %w", userID.Int64, core.ErrUnknownUser)
		}
		log.WithError(err).Error("Failed to create drawing")
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	log.WithField("drawing_id", id).Info("Drawing created successfully")
	created := &core.Drawing{
		ID:        id,
		Name:      nd.Name,
		Data:      nd.Data,
		CreatedAt: nd.CreatedAt,
		UpdatedAt: nd.UpdatedAt,
	}
	if userID.Valid {
		uid := userID.Int64
		created.UserID = &uid
	}
	return created, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDrawing(row scanner) (*core.Drawing, error) {
	var d core.Drawing
	var userID sql.NullInt64
	if err := row.Scan(&d.ID, &userID, &d.Name, &d.Data, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		uid := userID.Int64
		d.UserID = &uid
	}
	return &d, nil
}

func (s *sqliteStore) GetDrawing(ctx context.Context, id int64) (*core.Drawing, error) {
	log := logrus.WithField("drawing_id", id)
	log.Debug("Retrieving drawing by ID")

	d, err := scanDrawing(s.db.QueryRowContext(ctx, "SELECT "+drawingColumns+" FROM drawings WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Drawing with specified ID not found")
			return nil, fmt.Errorf("drawing %d: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve drawing")
		return nil, err
	}
	return d, nil
}

func (s *sqliteStore) GetDrawingsByUserID(ctx context.Context, userID int64) ([]*core.Drawing, error) {
	return s.listDrawings(ctx, logrus.WithField("user_id", userID),
		"SELECT "+drawingColumns+" FROM drawings WHERE user_id = ? ORDER BY id", userID)
}

func (s *sqliteStore) GetAllDrawings(ctx context.Context) ([]*core.Drawing, error) {
	return s.listDrawings(ctx, logrus.NewEntry(logrus.StandardLogger()),
		"SELECT "+drawingColumns+" FROM drawings ORDER BY id")
}

func (s *sqliteStore) listDrawings(ctx context.Context, log *logrus.Entry, query string, args ...any) ([]*core.Drawing, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to list drawings")
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close drawing rows")
		}
	}()

	drawings := make([]*core.Drawing, 0)
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan drawing")
			return nil, err
		}
		drawings = append(drawings, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debugf("Listed %d drawings", len(drawings))
	return drawings, nil
}

func (s *sqliteStore) UpdateDrawing(ctx context.Context, id int64, data string) (*core.Drawing, error) {
	log := logrus.WithFields(logrus.Fields{
		"drawing_id":  id,
		"data_length": len(data),
	})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := scanDrawing(tx.QueryRowContext(ctx, "SELECT "+drawingColumns+" FROM drawings WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Drawing with specified ID not found")
			return nil, fmt.Errorf("drawing %d: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve drawing")
		return nil, err
	}

	d.Data = data
	d.UpdatedAt = core.NextUpdatedAt(d, s.now())

	if _, err := tx.ExecContext(ctx, "UPDATE drawings SET data = ?, updated_at = ? WHERE id = ?", d.Data, d.UpdatedAt, id); err != nil {
		log.WithError(err).Error("Failed to update drawing")
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info("Drawing updated successfully")
	return d, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
