// Package cancel provides a Redis-backed cancellation registry so a cancel
// request reaches a scan running on another server instance.
package cancel
