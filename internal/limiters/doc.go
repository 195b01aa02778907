// Package limiters provides flow-specific Redis limiters.
//
// # Limiters
//
//   - [OTPLimiter]: per-account resend cooldown plus a wrong-code budget per
//     issued OTP.
//   - [PasswordResetLimiter]: per-identifier and per-IP throttle for reset
//     requests, per-IP throttle for confirmations.
//
// All limiters are nil-safe: calling any method on a nil receiver returns nil.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace and error types. Policy thresholds
// come from Config structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import clinicauth or any sibling internal package.
//   - Make policy decisions beyond counting. The engine decides consequences.
package limiters
