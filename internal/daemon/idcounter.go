package daemon

import "sync/atomic"

// idCounter hands out monotonically increasing stream IDs starting at 1,
// shared process-wide across every connection.
type idCounter struct {
	n atomic.Uint64
}

func (c *idCounter) next() uint64 {
	return c.n.Add(1)
}
