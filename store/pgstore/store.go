package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const uniqueViolation = "23505"

// ErrUnavailable wraps database failures.
var ErrUnavailable = errors.New("account database unavailable")

// Config holds connection pool settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
	LogLevel        logger.LogLevel
}

// Open connects to PostgreSQL with the given pool settings.
func Open(cfg Config) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Warn
	}

	lg := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             cfg.SlowThreshold,
			LogLevel:                  cfg.LogLevel,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{Logger: lg})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

// Migrate creates or updates the account tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&accountRow{}, &deviceRow{})
}

// Store persists accounts in PostgreSQL.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns a store over db. Call Migrate first.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func withDevices(db *gorm.DB) *gorm.DB {
	return db.Preload("Devices", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (s *Store) FindByID(ctx context.Context, role account.Role, id string) (*account.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, account.ErrNotFound
	}
	return s.first(ctx, "role = ? AND id = ?", string(role), id)
}

func (s *Store) FindByEmail(ctx context.Context, role account.Role, email string) (*account.Account, error) {
	return s.first(ctx, "role = ? AND email = ?", string(role), account.NormalizeEmail(email))
}

func (s *Store) FindByToken(ctx context.Context, role account.Role, field account.TokenField, hash string) (*account.Account, error) {
	column, ok := tokenColumns[field]
	if !ok || hash == "" {
		return nil, account.ErrNotFound
	}
	return s.first(ctx, "role = ? AND "+column+" = ?", string(role), hash)
}

func (s *Store) first(ctx context.Context, query string, args ...any) (*account.Account, error) {
	var row accountRow
	err := withDevices(s.db.WithContext(ctx)).Where(query, args...).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fromRow(&row), nil
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

	row := toRow(created)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		if len(row.Devices) > 0 {
			return tx.Create(&row.Devices).Error
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return created, nil
}

func (s *Store) Update(ctx context.Context, acct *account.Account) error {
	if acct == nil {
		return account.ErrNotFound
	}
	if _, err := uuid.Parse(acct.ID); err != nil {
		return account.ErrNotFound
	}

	next := acct.Clone()
	next.Email = account.NormalizeEmail(acct.Email)
	next.UpdatedAt = s.now().UTC()
	row := toRow(next)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&accountRow{}).
			Where("role = ? AND id = ?", row.Role, row.ID).
			Select("*").
			Omit("id", "role", "created_at", clause.Associations).
			Updates(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return account.ErrNotFound
		}

		if err := tx.Where("account_id = ?", row.ID).Delete(&deviceRow{}).Error; err != nil {
			return err
		}
		if len(row.Devices) > 0 {
			return tx.Create(&row.Devices).Error
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}

	acct.Email = next.Email
	acct.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *Store) Delete(ctx context.Context, role account.Role, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return account.ErrNotFound
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&deviceRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("role = ? AND id = ?", string(role), id).Delete(&accountRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return account.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, account.ErrNotFound) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return account.ErrEmailTaken
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
