// Package cli provides the interactive profilehub command-line client.
//
// It wires configuration, the HTTP API client, the session manager, and the
// upload pipeline into a small REPL. Typical flow: restore any persisted
// session on start, then execute user commands until exit.
//
// Key features:
//   - Register / Login / Logout with a persisted refresh token
//   - Show the current profile (whoami)
//   - Change the display name (setname)
//   - Upload a profile picture from a file or URL with live progress
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
