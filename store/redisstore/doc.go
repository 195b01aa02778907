// Package redisstore implements account.Store on Redis.
//
// # Layout
//
//	<prefix>:a:<role>:<id>                 versioned account record
//	<prefix>:e:<role>:<email>              email index -> id
//	<prefix>:t:<role>:<field>:<hash>       token digest index -> id
//
// Records are a one-byte version followed by a JSON body. Writes run inside
// WATCH/MULTI optimistic transactions with retry, so the record and its index
// keys always change together.
//
// # What this package must NOT do
//
//   - Interpret token expiry. Index keys live as long as the record field.
//   - Import the root clinicauth package.
package redisstore
