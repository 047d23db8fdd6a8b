// Package api defines the transport-friendly payload types shared by the
// HTTP surface and the IPC socket, plus conversions from internal models.
package api
