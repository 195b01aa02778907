// Package tokens mints the short-lived credentials used by the login flows:
// session tokens, numeric OTP codes, magic-link, reset and invite tokens.
//
// Every credential is returned twice: the raw value that is handed to the user
// and its SHA-256 hex digest, which is the only form that gets persisted.
// [Check] classifies a presented value against a stored digest and expiry as
// missing, expired or mismatched, comparing digests in constant time.
//
// # What this package must NOT do
//
//   - Persist tokens or clear them after use. Callers own single-use semantics.
//   - Import any other clinicauth package.
package tokens
