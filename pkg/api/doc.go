// Package api exposes the HTTP surface of the access engine: the
// navigation endpoint the UI shell polls, the role matrix and per-user
// override admin endpoints, token administration, and the audit trail.
//
// All routes live under /api/v1 behind bearer token authentication and
// per-caller rate limiting. Writes are full-replace and invalidate the
// resolution cache synchronously before the response is written, so a
// client that saves and immediately re-reads never sees a stale set.
package api
