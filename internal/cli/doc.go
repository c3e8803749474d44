// Package cli provides the repairdesk command-line front end.
//
// It wires configuration, the local store, the remote store, the sync
// engine and the backup service behind a cobra command tree. The `shell`
// command (also the default) starts an interactive REPL with a signed-in
// session, a background push scheduler and a connectivity watcher; on exit
// it runs a final push and backup with a bounded wait.
//
// One-shot commands (setup, restore, push, pull, backup, remote migrate,
// version) share the same wiring through NewApp.
package cli
