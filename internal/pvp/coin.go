// Package pvp holds the matchmaking helpers shared by the session hub.
package pvp

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// Coin is a fair binary random source.
type Coin interface {
	Flip() bool
}

// CryptoCoin draws from crypto/rand.
type CryptoCoin struct{}

func (CryptoCoin) Flip() bool {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil || n == nil {
		return false
	}
	return n.Int64() == 1
}

// SeededCoin is deterministic for a given seed.
type SeededCoin struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

func NewSeededCoin(seed uint64) *SeededCoin {
	return &SeededCoin{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (c *SeededCoin) Flip() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(2) == 1
}

// FixedCoin always returns the same side.
type FixedCoin bool

func (c FixedCoin) Flip() bool { return bool(c) }

// AssignColors returns (white, black). Heads gives white to the responder.
func AssignColors(c Coin, inviterID, responderID int64) (white, black int64) {
	if c == nil {
		c = CryptoCoin{}
	}
	if c.Flip() {
		return responderID, inviterID
	}
	return inviterID, responderID
}
