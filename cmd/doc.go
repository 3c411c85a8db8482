// Package cmd holds the cobra subcommands that run the simulator without the
// terminal UI: a headless invariant check and the HTTP server.
package cmd
