// Package ipc exposes daemon control over JSON-RPC on a Unix domain socket.
// The CLI is the primary consumer; every method maps onto a daemon operation
// and shares its payload types with the HTTP surface via the api package.
package ipc
