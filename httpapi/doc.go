// Package httpapi mounts every clinicauth operation on a chi router.
//
// Sessions travel in httpOnly cookies scoped per role (see
// middleware.CookieName). Between the password step and the code step of a
// device OTP login, the pending account is carried in a signed otp_challenge
// cookie. Auth routes are throttled per client IP with a token bucket.
package httpapi
