// Package device derives stable device identifiers from request metadata and
// maintains the capped, trusted-device list stored on each account.
//
// # Fingerprint
//
// A device id is the first 32 hex characters of
//
//	sha256(<normalized user agent> + ":" + <partial ip>)
//
// Version numbers in the user agent are collapsed so browser updates keep the
// same id. The IP is truncated to its /24 (IPv4) or first four groups (IPv6)
// so a device stays recognized across address churn inside the same network.
//
// # What this package must NOT do
//
//   - Persist anything. Functions take and return slices; callers store them.
//   - Mutate the slice passed in.
package device
