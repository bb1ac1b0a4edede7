// Package limiter throttles login attempts per (account, client address).
package limiter

import (
	"context"
	"crypto/sha256"
	"net"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a login is currently allowed and, if not, for how long it stays blocked.
	Allow(ctx context.Context, account string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, account string, ipHash []byte) error
	// Failure records a failed attempt and reports whether it placed a block.
	Failure(ctx context.Context, account string, ipHash []byte) (bool, time.Duration, error)
}

// Policy is the lockout rule: MaxFails failures within Window block for BlockFor.
type Policy struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// DefaultPolicy allows five failures per fifteen minutes.
var DefaultPolicy = Policy{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute}

// HashIP returns a stable hash of the client host so raw addresses are never stored.
// The port of a "host:port" remote address is ignored.
func HashIP(addr string) []byte {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	h := sha256.Sum256([]byte(addr))
	return h[:]
}
