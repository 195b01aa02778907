// Package rate provides the Redis fixed-window counters behind login
// throttling.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - cal:  login failures per role and email
//   - cali: login failures per client IP
//
// # What this package must NOT do
//
//   - Implement flow-specific policies (those live in internal/limiters).
//   - Be imported outside the clinicauth module.
package rate
