// Package badgerdb stores conversations, messages and accounts in an
// embedded Badger database.
//
// Key layout:
//
//	conv:{id}                        conversation record
//	pair:{a}\x00{b}                  conversation id of the pair
//	msg:{conversation}:{ns}:{id}     message record, ns zero-padded to 19 digits
//	user:{id}                        account record
//	email:{email} / handle:{name}    account id indexes
//
// Padding the timestamp makes the lexicographic key order the message order,
// with the id breaking ties between messages stamped in the same nanosecond.
package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/account"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store implements the chat repositories and account.Store on Badger.
type Store struct {
	db    *badger.DB
	log   *slog.Logger
	limit int
}

// Open opens (or creates) a Badger database at path.
func Open(path string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("cannot open badger database %s: %w", path, err)
	}
	return db, nil
}

// New returns a Store on an open database.
func New(db *badger.DB, log *slog.Logger, directoryLimit int) *Store {
	return &Store{db: db, log: log, limit: directoryLimit}
}

type conversationRecord struct {
	ID           string `bson:"id"`
	ParticipantA string `bson:"a"`
	ParticipantB string `bson:"b"`
	CreatedAt    int64  `bson:"at"`
}

type messageRecord struct {
	ID             string `bson:"id"`
	ConversationID string `bson:"conversation"`
	SenderID       string `bson:"sender"`
	Body           string `bson:"body"`
	CreatedAt      int64  `bson:"at"`
}

type accountRecord struct {
	ID           string `bson:"id"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"password"`
	Name         string `bson:"name"`
	Username     string `bson:"username"`
	Bio          string `bson:"bio"`
	PhotoURL     string `bson:"photo_url"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func convKey(id string) []byte { return []byte("conv:" + id) }
func pairKey(p chat.Pair) []byte {
	return []byte("pair:" + p.A + "\x00" + p.B)
}
func msgPrefix(conversationID string) []byte { return []byte("msg:" + conversationID + ":") }
func msgKey(m chat.Message) []byte {
	return fmt.Appendf(nil, "msg:%s:%019d:%s", m.ConversationID, m.CreatedAt.UnixNano(), m.ID)
}
func userKey(id string) []byte       { return []byte("user:" + id) }
func emailKey(email string) []byte   { return []byte("email:" + email) }
func handleKey(handle string) []byte { return []byte("handle:" + handle) }

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func get(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return bson.Unmarshal(val, v)
	})
}

func set(txn *badger.Txn, key []byte, v any) error {
	b, err := bson.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, b)
}

// FindByPair returns the conversations indexed under pair in either
// participant order. Each pair key admits a single row, so the result has
// at most two elements, the canonical one first.
func (s *Store) FindByPair(_ context.Context, pair chat.Pair) ([]chat.Conversation, error) {
	var convs []chat.Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range [][]byte{pairKey(pair), pairKey(pair.Reverse())} {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			id, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec conversationRecord
			if err := get(txn, convKey(string(id)), &rec); err != nil {
				return fmt.Errorf("pair index points at %s: %w", id, err)
			}
			convs = append(convs, rec.conversation())
		}
		return nil
	})
	return convs, err
}

// InsertIfAbsent claims the pair key and writes the conversation in one
// transaction. A row under either participant order counts as taken. A
// concurrent claim surfaces as badger.ErrConflict on commit, which is
// reported as chat.ErrPairExists.
func (s *Store) InsertIfAbsent(_ context.Context, conv chat.Conversation) error {
	pair := conv.Pair()
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{pairKey(pair), pairKey(pair.Reverse())} {
			taken, err := exists(txn, key)
			if err != nil {
				return err
			}
			if taken {
				return chat.ErrPairExists
			}
		}
		if err := txn.Set(pairKey(pair), []byte(conv.ID)); err != nil {
			return err
		}
		return set(txn, convKey(conv.ID), fromConversation(conv))
	})
	if errors.Is(err, badger.ErrConflict) || errors.Is(err, chat.ErrPairExists) {
		return fmt.Errorf("pair (%s, %s): %w", pair.A, pair.B, chat.ErrPairExists)
	}
	return err
}

func (s *Store) GetConversation(_ context.Context, id string) (chat.Conversation, error) {
	var rec conversationRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, convKey(id), &rec)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Conversation{}, chat.ErrConversationNotFound
	}
	if err != nil {
		return chat.Conversation{}, err
	}
	return rec.conversation(), nil
}

// InsertMessage writes the message if its conversation exists.
func (s *Store) InsertMessage(_ context.Context, msg chat.Message) error {
	return s.db.Update(func(txn *badger.Txn) error {
		ok, err := exists(txn, convKey(msg.ConversationID))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("insert message %s: %w", msg.ID, chat.ErrConversationNotFound)
		}
		return set(txn, msgKey(msg), fromMessage(msg))
	})
}

// ListMessages scans the conversation's prefix; key order is message order.
func (s *Store) ListMessages(_ context.Context, conversationID string) ([]chat.Message, error) {
	msgs := []chat.Message{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := msgPrefix(conversationID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec messageRecord
			err := it.Item().Value(func(val []byte) error {
				return bson.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			msgs = append(msgs, rec.message())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("messages listed", "conversation_id", conversationID, "count", len(msgs))
	return msgs, nil
}

// CreateAccount stores the account with its email and username indexes.
func (s *Store) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	acc = account.Normalize(acc)
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acc.CreatedAt, acc.UpdatedAt = now, now

	err := s.db.Update(func(txn *badger.Txn) error {
		taken, err := exists(txn, emailKey(acc.Email))
		if err != nil {
			return err
		}
		if taken {
			return account.ErrUserExists
		}
		if acc.Username != "" {
			taken, err := exists(txn, handleKey(acc.Username))
			if err != nil {
				return err
			}
			if taken {
				return account.ErrUsernameTaken
			}
			if err := txn.Set(handleKey(acc.Username), []byte(acc.ID)); err != nil {
				return err
			}
		}
		if err := txn.Set(emailKey(acc.Email), []byte(acc.ID)); err != nil {
			return err
		}
		return set(txn, userKey(acc.ID), fromAccount(acc))
	})
	if errors.Is(err, badger.ErrConflict) {
		err = s.accountConflict(acc, err)
	}
	if err != nil {
		return account.Account{}, err
	}
	return acc, nil
}

// accountConflict names the index a concurrent writer claimed first. A
// conflict on neither index is returned as is.
func (s *Store) accountConflict(acc account.Account, conflict error) error {
	var emailTaken, handleTaken bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		if emailTaken, err = exists(txn, emailKey(acc.Email)); err != nil {
			return err
		}
		if acc.Username != "" {
			handleTaken, err = exists(txn, handleKey(acc.Username))
		}
		return err
	})
	switch {
	case err != nil:
		return errors.Join(conflict, err)
	case emailTaken:
		return account.ErrUserExists
	case handleTaken:
		return account.ErrUsernameTaken
	}
	return fmt.Errorf("create account %s: %w", acc.Email, conflict)
}

func (s *Store) GetByEmail(_ context.Context, email string) (account.Account, error) {
	var rec accountRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(account.Normalize(account.Account{Email: email}).Email))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return get(txn, userKey(string(id)), &rec)
	})
	return rec.account(err)
}

func (s *Store) GetByID(_ context.Context, id string) (account.Account, error) {
	var rec accountRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, userKey(id), &rec)
	})
	return rec.account(err)
}

// ListCandidates implements chat.UserDirectory.
func (s *Store) ListCandidates(_ context.Context, viewerID string) ([]chat.User, error) {
	var accounts []account.Account
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec accountRecord
			if err := it.Item().Value(func(val []byte) error { return bson.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			acc, _ := rec.account(nil)
			accounts = append(accounts, acc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account.Candidates(accounts, viewerID, s.limit), nil
}

func (r conversationRecord) conversation() chat.Conversation {
	return chat.Conversation{
		ID:           r.ID,
		ParticipantA: r.ParticipantA,
		ParticipantB: r.ParticipantB,
		CreatedAt:    time.Unix(0, r.CreatedAt).UTC(),
	}
}

func fromConversation(c chat.Conversation) conversationRecord {
	return conversationRecord{
		ID:           c.ID,
		ParticipantA: c.ParticipantA,
		ParticipantB: c.ParticipantB,
		CreatedAt:    c.CreatedAt.UnixNano(),
	}
}

func (r messageRecord) message() chat.Message {
	return chat.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		Body:           r.Body,
		CreatedAt:      time.Unix(0, r.CreatedAt).UTC(),
	}
}

func fromMessage(m chat.Message) messageRecord {
	return messageRecord{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt.UnixNano(),
	}
}

// account converts a record read under err; a missing key becomes
// account.ErrUserNotFound.
func (r accountRecord) account(err error) (account.Account, error) {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return account.Account{}, account.ErrUserNotFound
	}
	if err != nil {
		return account.Account{}, err
	}
	return account.Account{
		User: chat.User{
			ID:       r.ID,
			Name:     r.Name,
			Username: r.Username,
			Bio:      r.Bio,
			PhotoURL: r.PhotoURL,
		},
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt:    time.Unix(0, r.UpdatedAt).UTC(),
	}, nil
}

func fromAccount(a account.Account) accountRecord {
	return accountRecord{
		ID:           a.ID,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Name:         a.Name,
		Username:     a.Username,
		Bio:          a.Bio,
		PhotoURL:     a.PhotoURL,
		CreatedAt:    a.CreatedAt.UnixNano(),
		UpdatedAt:    a.UpdatedAt.UnixNano(),
	}
}
