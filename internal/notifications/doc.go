// Package notifications delivers import and error events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. All daemon code
// depends only on the simple Service interface, so alternative transports can
// be added without touching the callers.
package notifications
