package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const maxRetries = 4

var (
	// ErrUnavailable wraps Redis failures.
	ErrUnavailable = errors.New("account redis unavailable")
	// ErrContention is returned when optimistic retries are exhausted.
	ErrContention = errors.New("account update contention")
)

// Store persists accounts in Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New returns a store. An empty prefix defaults to "ca".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ca"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *Store) accountKey(role account.Role, id string) string {
	return s.prefix + ":a:" + string(role) + ":" + id
}

func (s *Store) emailKey(role account.Role, email string) string {
	return s.prefix + ":e:" + string(role) + ":" + account.NormalizeEmail(email)
}

func (s *Store) tokenKey(role account.Role, field account.TokenField, hash string) string {
	return s.prefix + ":t:" + string(role) + ":" + string(field) + ":" + hash
}

func (s *Store) FindByID(ctx context.Context, role account.Role, id string) (*account.Account, error) {
	if id == "" {
		return nil, account.ErrNotFound
	}
	return s.load(ctx, s.redis, s.accountKey(role, id))
}

func (s *Store) FindByEmail(ctx context.Context, role account.Role, email string) (*account.Account, error) {
	id, err := s.lookup(ctx, s.emailKey(role, email))
	if err != nil {
		return nil, err
	}
	return s.FindByID(ctx, role, id)
}

func (s *Store) FindByToken(ctx context.Context, role account.Role, field account.TokenField, hash string) (*account.Account, error) {
	if hash == "" {
		return nil, account.ErrNotFound
	}
	id, err := s.lookup(ctx, s.tokenKey(role, field, hash))
	if err != nil {
		return nil, err
	}
	acct, err := s.FindByID(ctx, role, id)
	if err != nil {
		return nil, err
	}
	// The index is rewritten with the record, but a concurrent rotation can
	// still race a reader.
	if acct.TokenHash(field) != hash {
		return nil, account.ErrNotFound
	}
	return acct, nil
}

func (s *Store) Create(ctx context.Context, acct *account.Account) (*account.Account, error) {
	if acct == nil || !acct.Role.Valid() {
		return nil, account.ErrInvalidRole
	}

	created := acct.Clone()
	created.ID = uuid.NewString()
	created.Email = account.NormalizeEmail(acct.Email)
	now := s.now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	data, err := encodeRecord(created)
	if err != nil {
		return nil, err
	}

	emailKey := s.emailKey(created.Role, created.Email)
	recordKey := s.accountKey(created.Role, created.ID)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.Exists(ctx, emailKey).Result()
			if err != nil {
				return err
			}
			if exists > 0 {
				return account.ErrEmailTaken
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, recordKey, data, 0)
				pipe.Set(ctx, emailKey, created.ID, 0)
				for _, field := range account.TokenFields() {
					if h := created.TokenHash(field); h != "" {
						pipe.Set(ctx, s.tokenKey(created.Role, field, h), created.ID, 0)
					}
				}
				return nil
			})
			return err
		}, emailKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, s.wrap(err)
		}
		return created.Clone(), nil
	}

	return nil, ErrContention
}

func (s *Store) Update(ctx context.Context, acct *account.Account) error {
	if acct == nil || acct.ID == "" {
		return account.ErrNotFound
	}

	next := acct.Clone()
	next.Email = account.NormalizeEmail(acct.Email)
	next.UpdatedAt = s.now().UTC()

	recordKey := s.accountKey(next.Role, next.ID)
	newEmailKey := s.emailKey(next.Role, next.Email)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			prev, err := s.load(ctx, tx, recordKey)
			if err != nil {
				return err
			}

			emailChanged := prev.Email != next.Email
			if emailChanged {
				owner, err := tx.Get(ctx, newEmailKey).Result()
				if err != nil && !errors.Is(err, redis.Nil) {
					return err
				}
				if err == nil && owner != next.ID {
					return account.ErrEmailTaken
				}
			}

			next.CreatedAt = prev.CreatedAt
			data, err := encodeRecord(next)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, recordKey, data, 0)
				if emailChanged {
					pipe.Del(ctx, s.emailKey(prev.Role, prev.Email))
					pipe.Set(ctx, newEmailKey, next.ID, 0)
				}
				for _, field := range account.TokenFields() {
					oldHash, newHash := prev.TokenHash(field), next.TokenHash(field)
					if oldHash == newHash {
						continue
					}
					if oldHash != "" {
						pipe.Del(ctx, s.tokenKey(prev.Role, field, oldHash))
					}
					if newHash != "" {
						pipe.Set(ctx, s.tokenKey(next.Role, field, newHash), next.ID, 0)
					}
				}
				return nil
			})
			return err
		}, recordKey, newEmailKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return s.wrap(err)
		}
		acct.Email = next.Email
		acct.UpdatedAt = next.UpdatedAt
		acct.CreatedAt = next.CreatedAt
		return nil
	}

	return ErrContention
}

func (s *Store) Delete(ctx context.Context, role account.Role, id string) error {
	recordKey := s.accountKey(role, id)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			prev, err := s.load(ctx, tx, recordKey)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, recordKey, s.emailKey(prev.Role, prev.Email))
				for _, field := range account.TokenFields() {
					if h := prev.TokenHash(field); h != "" {
						pipe.Del(ctx, s.tokenKey(prev.Role, field, h))
					}
				}
				return nil
			})
			return err
		}, recordKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return s.wrap(err)
		}
		return nil
	}

	return ErrContention
}

func (s *Store) lookup(ctx context.Context, key string) (string, error) {
	id, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", account.ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return id, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) load(ctx context.Context, c getter, key string) (*account.Account, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeRecord(data)
}

func (s *Store) wrap(err error) error {
	switch {
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, account.ErrEmailTaken),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, errInvalidRecord):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
