package authclient

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// StoredToken is the persistence model for BunTokenStore: one keyed row per
// stored credential, mirroring a browser's key-value storage slot.
type StoredToken struct {
	bun.BaseModel `bun:"table:auth_tokens,alias:tok"`
	Key           string     `bun:"key,pk" json:"key"`
	Value         string     `bun:"value,notnull" json:"value,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// BunTokenStore is a TokenStore backed by a bun database (SQLite in the
// examples). Tokens survive process restarts, matching the durable storage
// the session model expects.
type BunTokenStore struct {
	db  *bun.DB
	key string
}

var _ TokenStore = (*BunTokenStore)(nil)

type BunTokenStoreOption func(*BunTokenStore)

// WithStorageKey overrides the row key used for the token.
func WithStorageKey(key string) BunTokenStoreOption {
	return func(s *BunTokenStore) {
		if key != "" {
			s.key = key
		}
	}
}

func NewBunTokenStore(db *bun.DB, opts ...BunTokenStoreOption) *BunTokenStore {
	s := &BunTokenStore{
		db:  db,
		key: DefaultStorageKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Init creates the backing table when it does not exist yet.
func (s *BunTokenStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*StoredToken)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to initialize token store")
	}
	return nil
}

func (s *BunTokenStore) Get(ctx context.Context) (string, error) {
	row := new(StoredToken)
	err := s.db.NewSelect().
		Model(row).
		Where("key = ?", s.key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read token")
	}
	return row.Value, nil
}

func (s *BunTokenStore) Set(ctx context.Context, token string) error {
	now := time.Now()
	row := &StoredToken{
		Key:       s.key,
		Value:     token,
		UpdatedAt: &now,
	}

	if _, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist token")
	}
	return nil
}

func (s *BunTokenStore) Clear(ctx context.Context) error {
	if _, err := s.db.NewDelete().
		Model((*StoredToken)(nil)).
		Where("key = ?", s.key).
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to clear token")
	}
	return nil
}
