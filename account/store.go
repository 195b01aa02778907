package account

import "context"

// Store persists accounts. Implementations must return ErrNotFound for
// missing records and ErrEmailTaken for duplicate (role, email) pairs; any
// other error is treated as transient.
//
// Update replaces the stored record with acct. Concurrent updates of the same
// account are last-write-wins.
type Store interface {
	FindByEmail(ctx context.Context, role Role, email string) (*Account, error)
	FindByID(ctx context.Context, role Role, id string) (*Account, error)
	FindByToken(ctx context.Context, role Role, field TokenField, hash string) (*Account, error)
	Create(ctx context.Context, acct *Account) (*Account, error)
	Update(ctx context.Context, acct *Account) error
	Delete(ctx context.Context, role Role, id string) error
}
