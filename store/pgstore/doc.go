// Package pgstore implements account.Store on PostgreSQL through gorm.
//
// Accounts live in one "accounts" table discriminated by role, with a unique
// (role, email) index and an index on every token digest column. Remembered
// devices live in the "account_devices" child table, ordered by position and
// rewritten with the account on every Update.
package pgstore
