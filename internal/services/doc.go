// Package services holds the clients for the external tools the jukebox
// shells out to, behind an Executor seam so tests can fake the binaries.
package services
