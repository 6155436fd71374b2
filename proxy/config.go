package proxy

import (
	"time"

	"github.com/g023/g023-OllamaMan-sub000/relay"
)

// Config is the console server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// Defaults are the upstream target and history policy used when the
	// settings table has no override.
	Defaults relay.Defaults

	// JanitorInterval is how often expired history is pruned.
	// Zero disables the janitor.
	JanitorInterval time.Duration
}
