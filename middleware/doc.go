// Package middleware exposes HTTP guards that resolve a role-scoped session
// cookie through clinicauth.Engine.ValidateSession.
//
// # Guards
//
//   - [Guard] accepts the session cookie of one role.
//   - [RequireAdmin], [RequireDoctor] and [RequirePatient] are shorthands.
//
// Each guard reads the role's cookie, calls Engine.ValidateSession, and
// injects the resolved session into the request context.
//
// This package translates HTTP semantics into Engine calls. It never reads
// the account store or Redis itself.
package middleware
