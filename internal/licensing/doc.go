// Package licensing implements license activation, device binding, and
// periodic heartbeat validation.
//
// A device activates once against a license key and then heartbeats
// periodically. Heartbeats carry an externally computed fingerprint
// similarity score; drift beyond the policy tolerance is absorbed by a
// bounded grace period before the device is blocked. All state transitions
// are lazy: expiry is evaluated on the next call, never by a background job.
package licensing
