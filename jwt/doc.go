// Package jwt signs and verifies the short-lived challenge token that carries
// a pending OTP login between the password step and the code step.
package jwt
