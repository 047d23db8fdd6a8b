// Package slots persists the jukebox track and soundboard sample slots in
// SQLite and keeps them reconciled with the media directories on disk.
package slots
