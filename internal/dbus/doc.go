// Package dbus exposes the entry scheduler on the session bus.
// The server wraps a scheduler.Kit and emits lifecycle signals; the client
// is used by the entrykit CLI to talk to a running daemon.
package dbus
