// Package command exposes go-command compatible command handlers implementing
// go-prefs business logic (preference writes, removals, reverts). Commands are
// wired by the service layer and can be invoked by any transport.
package command
