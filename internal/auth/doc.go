// Package auth gates the admin HTTP API behind the per-session secret.
//
// The admin server issues a fresh random secret each time it starts. Clients
// present it as a Bearer token:
//
//	Authorization: Bearer <secret>
//
// Verify compares the token against the current secret in constant time.
// Middleware wraps a handler and rejects anything Verify refuses with 401 and
// a JSON body of the form {"detail": "..."}.
//
// The secret is read through SecretSource on every request, so a restart of
// the admin server invalidates previously issued tokens immediately.
package auth
