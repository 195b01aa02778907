// Package account defines the generic clinic account record shared by every
// role and the storage contract the engine depends on.
//
// Admin, doctor and patient accounts share one [Account] shape and are told
// apart by [Role]. Role-specific extras ride in [Account.Attributes].
//
// Token-valued fields hold SHA-256 hex digests, never raw credentials, so a
// store can index them for [Store.FindByToken] without holding anything a
// reader could replay. A zero time means the paired token is absent.
//
// # What this package must NOT do
//
//   - Import the root clinicauth package or any store implementation.
//   - Apply login policy. Stores persist; the engine decides.
package account
