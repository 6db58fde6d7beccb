package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/pkg/logger"
)

// Key layout:
//
//	session/<id>          -> JSON session
//	claim/<claimId>       -> session id
//	user/<userId>/<id>    -> empty
const (
	sessionPrefix = "session/"
	claimPrefix   = "claim/"
	userPrefix    = "user/"

	maxTxnRetries = 5
)

// BadgerConfig configures the embedded session database.
type BadgerConfig struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     logger.Logger
}

// badgerLogger adapts logger.Logger to badger's logging interface.
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}

// OpenBadger opens a badger database for sessions.
func OpenBadger(cfg BadgerConfig) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{log: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// BadgerSessionStore implements SessionStore on BadgerDB.
type BadgerSessionStore struct {
	db *badger.DB
}

// NewBadgerSessionStore wraps an open database. The store owns db and
// closes it on Close.
func NewBadgerSessionStore(db *badger.DB) *BadgerSessionStore {
	return &BadgerSessionStore{db: db}
}

// Create implements SessionStore.Create. Concurrent creates for one claim
// conflict inside badger and are retried; the loser reads the winner.
func (b *BadgerSessionStore) Create(ctx context.Context, s model.Session) (model.Session, bool, error) { //nolint:gocritic // sessions are passed by value across the API
	if err := prepareSession(&s); err != nil {
		return model.Session{}, false, err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return model.Session{}, false, fmt.Errorf("encode session: %w", err)
	}

	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.Session{}, false, err
		}
		var (
			stored  model.Session
			created bool
		)
		err = b.db.Update(func(txn *badger.Txn) error {
			existing, err := getByClaim(txn, s.ClaimID)
			if err == nil {
				stored = existing
				return nil
			}
			if !errors.Is(err, ErrSessionNotFound) {
				return err
			}
			if _, err := txn.Get([]byte(sessionPrefix + s.ID)); err == nil {
				return fmt.Errorf("%w: id %q already used", ErrInvalidSession, s.ID)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			sets := []struct{ k, v []byte }{
				{[]byte(sessionPrefix + s.ID), payload},
				{[]byte(claimPrefix + s.ClaimID), []byte(s.ID)},
				{userKey(s.Participants.CandidateUserID, s.ID), nil},
				{userKey(s.Participants.InterviewerUserID, s.ID), nil},
			}
			for _, kv := range sets {
				if err := txn.Set(kv.k, kv.v); err != nil {
					return err
				}
			}
			stored, created = s, true
			return nil
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return model.Session{}, false, fmt.Errorf("store session: %w", err)
		}
		return stored, created, nil
	}
	return model.Session{}, false, fmt.Errorf("store session: %w", badger.ErrConflict)
}

// Get implements SessionStore.Get.
func (b *BadgerSessionStore) Get(_ context.Context, id string) (model.Session, error) {
	var s model.Session
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		s, err = getSession(txn, id)
		return err
	})
	return s, err
}

// GetByClaim implements SessionStore.GetByClaim.
func (b *BadgerSessionStore) GetByClaim(_ context.Context, claimID string) (model.Session, error) {
	var s model.Session
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		s, err = getByClaim(txn, claimID)
		return err
	})
	return s, err
}

// ListByUser implements SessionStore.ListByUser.
func (b *BadgerSessionStore) ListByUser(_ context.Context, userID string) ([]model.Session, error) {
	var out []model.Session
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := userKey(userID, "")
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var ids []string
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		for _, id := range ids {
			s, err := getSession(txn, id)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortSessions(out)
	return out, nil
}

// Count implements SessionStore.Count.
func (b *BadgerSessionStore) Count(context.Context) int {
	n := 0
	_ = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(sessionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n
}

// Close implements SessionStore.Close.
func (b *BadgerSessionStore) Close() error {
	return b.db.Close()
}

func userKey(userID, sessionID string) []byte {
	return []byte(userPrefix + userID + "/" + sessionID)
}

func getSession(txn *badger.Txn, id string) (model.Session, error) {
	item, err := txn.Get([]byte(sessionPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return model.Session{}, err
	}
	var s model.Session
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &s)
	})
	if err != nil {
		return model.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

func getByClaim(txn *badger.Txn, claimID string) (model.Session, error) {
	item, err := txn.Get([]byte(claimPrefix + claimID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Session{}, fmt.Errorf("%w: claim %s", ErrSessionNotFound, claimID)
	}
	if err != nil {
		return model.Session{}, err
	}
	id, err := item.ValueCopy(nil)
	if err != nil {
		return model.Session{}, err
	}
	return getSession(txn, string(id))
}
