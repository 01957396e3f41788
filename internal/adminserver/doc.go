// Package adminserver supervises the admin HTTP server for the command console.
//
// A Manager moves through four states:
//
//	Stopped -> Starting -> Running -> Stopping -> Stopped
//
// Start refuses to run when another process already answers on the requested
// port, issues a fresh 128-bit session secret, serves in a background
// goroutine, and polls the port until it accepts connections. Stop shuts the
// server down cooperatively with a bounded wait and always returns the manager
// to Stopped.
//
// The Manager is itself an auth.SecretSource: Secret reports the secret of the
// running instance, or "" while stopped.
package adminserver
