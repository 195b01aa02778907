// Package clinicauth is the authentication core of the clinic site. It runs
// password login with device-based OTP challenges, magic links, opaque
// server-side sessions, admin invites and password resets for the admin,
// doctor and patient roles.
//
// An [Engine] is assembled with [New] and [Builder.Build]. The caller owns
// the account store, the Redis client used by the limiters, and the
// notification sender, and closes the Engine on shutdown.
//
// # Credentials
//
// Every credential handed to a user (session token, OTP code, magic link,
// reset and invite tokens) is stored only as its SHA-256 digest together with
// an expiry. Expired credentials are treated as absent and cleared lazily when
// presented.
//
// # Request context
//
// The client IP and User-Agent travel on the context ([WithClientIP],
// [WithUserAgent]). Login uses them to fingerprint the device; rate limiting
// and audit events use the IP.
package clinicauth
