// Package sqlitedb stores conversations, messages and accounts in SQLite.
package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/account"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store implements the chat repositories and account.Store on SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	limit  int
}

// Open opens the database at dbPath, creating its directory and schema.
func Open(dbPath string, logger *slog.Logger, directoryLimit int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// One writer; serializes the uniqueness checks as well.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger, limit: directoryLimit}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		username      TEXT UNIQUE,
		bio           TEXT NOT NULL DEFAULT '',
		photo_url     TEXT NOT NULL DEFAULT '',
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_name ON users(name, id);

	CREATE TABLE IF NOT EXISTS conversations (
		id            TEXT PRIMARY KEY,
		participant_a TEXT NOT NULL,
		participant_b TEXT NOT NULL,
		created_at    INTEGER NOT NULL,
		UNIQUE (participant_a, participant_b)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		sender_id       TEXT NOT NULL,
		body            TEXT NOT NULL,
		created_at      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conv ON messages(conversation_id, created_at, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// isUnique reports whether err is a UNIQUE constraint violation. Primary key,
// NOT NULL and foreign key failures are not. The driver enables extended
// result codes on every connection.
func isUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// FindByPair matches pair in either participant order, oldest first.
func (s *Store) FindByPair(ctx context.Context, pair chat.Pair) ([]chat.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, participant_a, participant_b, created_at FROM conversations
		 WHERE (participant_a = ? AND participant_b = ?)
		    OR (participant_a = ? AND participant_b = ?)
		 ORDER BY created_at, id`,
		pair.A, pair.B, pair.B, pair.A,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []chat.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// InsertIfAbsent relies on UNIQUE(participant_a, participant_b).
func (s *Store) InsertIfAbsent(ctx context.Context, conv chat.Conversation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, participant_a, participant_b, created_at) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.ParticipantA, conv.ParticipantB, conv.CreatedAt.UnixNano(),
	)
	if isUnique(err) {
		return fmt.Errorf("pair (%s, %s): %w", conv.ParticipantA, conv.ParticipantB, chat.ErrPairExists)
	}
	return err
}

func (s *Store) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, participant_a, participant_b, created_at FROM conversations WHERE id = ?`, id)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Conversation{}, chat.ErrConversationNotFound
	}
	return conv, err
}

// InsertMessage inserts only when the conversation exists.
func (s *Store) InsertMessage(ctx context.Context, msg chat.Message) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		 SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM conversations WHERE id = ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Body, msg.CreatedAt.UnixNano(), msg.ConversationID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("insert message %s: %w", msg.ID, chat.ErrConversationNotFound)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender_id, body, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY created_at, id`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []chat.Message{}
	for rows.Next() {
		var m chat.Message
		var at int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &at); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(0, at).UTC()
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *Store) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	acc = account.Normalize(acc)
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acc.CreatedAt, acc.UpdatedAt = now, now

	var username sql.NullString
	if acc.Username != "" {
		username = sql.NullString{String: acc.Username, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, username, bio, photo_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acc.ID, acc.Email, acc.PasswordHash, acc.Name, username, acc.Bio, acc.PhotoURL,
		now.UnixNano(), now.UnixNano(),
	)
	if isUnique(err) {
		if strings.Contains(err.Error(), "users.username") {
			return account.Account{}, account.ErrUsernameTaken
		}
		return account.Account{}, account.ErrUserExists
	}
	if err != nil {
		return account.Account{}, err
	}
	return acc, nil
}

const userColumns = `id, email, password_hash, name, username, bio, photo_url, created_at, updated_at`

func (s *Store) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	email = account.Normalize(account.Account{Email: email}).Email
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanAccount(row)
}

func (s *Store) GetByID(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanAccount(row)
}

// ListCandidates implements chat.UserDirectory. A limit of -1 is unbounded
// in SQLite.
func (s *Store) ListCandidates(ctx context.Context, viewerID string) ([]chat.User, error) {
	limit := s.limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE id != ? AND name != '' AND bio != ''
		 ORDER BY name, id LIMIT ?`,
		viewerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []chat.User{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, acc.User)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (chat.Conversation, error) {
	var c chat.Conversation
	var at int64
	if err := row.Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &at); err != nil {
		return chat.Conversation{}, err
	}
	c.CreatedAt = time.Unix(0, at).UTC()
	return c, nil
}

func scanAccount(row scanner) (account.Account, error) {
	var acc account.Account
	var username sql.NullString
	var created, updated int64
	err := row.Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Name, &username,
		&acc.Bio, &acc.PhotoURL, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, account.ErrUserNotFound
	}
	if err != nil {
		return account.Account{}, err
	}
	acc.Username = username.String
	acc.CreatedAt = time.Unix(0, created).UTC()
	acc.UpdatedAt = time.Unix(0, updated).UTC()
	return acc, nil
}
