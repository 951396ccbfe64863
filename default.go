package parcel

import (
	"context"
	"sync/atomic"
)

var defaultChain atomic.Pointer[Chain]

func init() {
	defaultChain.Store(newBuiltinChain())
}

// newBuiltinChain returns the chain used until SetDefault is called.
// It does not encrypt; install a chain with SealedJSON for that.
func newBuiltinChain() *Chain {
	return MustChain(Null(), Bytes(), ProtoJSON(), JSON())
}

// Default returns the process-wide chain.
func Default() *Chain {
	return defaultChain.Load()
}

// SetDefault replaces the process-wide chain and returns the previous one.
// Passing nil restores the builtin chain. Readers observe either the old or
// the new chain, never a partially built one.
func SetDefault(c *Chain) *Chain {
	if c == nil {
		c = newBuiltinChain()
	}
	prev := defaultChain.Swap(c)
	emitDefaultReplaced(context.Background(), c.Encodings())
	return prev
}
