// Package password implements password hashing and verification with scrypt.
//
// # Output format
//
// Hashes are stored as two hex fields joined by a colon:
//
//	<saltHex>:<derivedKeyHex>
//
// The scrypt cost parameters are not part of the stored value. When N, r or p
// change, the previous sets go in [Config.Legacy]; [Scrypt.Match] then accepts
// those hashes and reports them for upgrade so the caller can re-hash on the
// next successful login. Hashes with a different key length are upgraded the
// same way.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other clinicauth package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
