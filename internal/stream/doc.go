// Package stream defines the progress events a scan run emits and the sinks
// that deliver them: server-sent event frames and WebSocket messages.
package stream
