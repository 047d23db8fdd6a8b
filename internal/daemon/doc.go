// Package daemon wires the jukebox subsystems together: the slot store and
// its filesystem reconciler, the keypad poller, the control loop, the player,
// the import orchestrator, and the HTTP surface. It enforces single-instance
// execution with a lock file.
package daemon
