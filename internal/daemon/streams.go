package daemon

import (
	"context"
	"sync"

	"field-execd/internal/protocol"
)

// managedStream is one in-flight ssh.start command. Its terminal stream_exit
// event can be triggered by three independent paths (natural completion,
// cancel, connection shutdown); once ensures exactly one of them emits it.
type managedStream struct {
	id     uint64
	cancel context.CancelFunc
	once   sync.Once
}

// finish emits the stream's terminal stream_exit event, the first time it is
// called for this stream; later calls are no-ops.
func (ms *managedStream) finish(out *outbox, exitStatus int32, errMsg string) {
	ms.once.Do(func() {
		out.send(protocol.NewStreamExitEvent(ms.id, exitStatus, errMsg))
	})
}

// streamTable is the per-connection set of live Streams, keyed by stream_id.
type streamTable struct {
	mu      sync.Mutex
	streams map[uint64]*managedStream
}

func newStreamTable() *streamTable {
	return &streamTable{streams: make(map[uint64]*managedStream)}
}

func (t *streamTable) insert(ms *managedStream) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streams[ms.id] = ms
}

// remove deletes and returns the stream for id, if still present. Deleting a
// stream that has already been removed (by a racing path) is a no-op that
// reports ok=false.
func (t *streamTable) remove(id uint64) (*managedStream, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ms, ok := t.streams[id]
	if ok {
		delete(t.streams, id)
	}
	return ms, ok
}

// drainAll atomically empties the table and returns every stream that was
// live at the moment of the call.
func (t *streamTable) drainAll() []*managedStream {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*managedStream, 0, len(t.streams))
	for _, ms := range t.streams {
		out = append(out, ms)
	}
	t.streams = make(map[uint64]*managedStream)
	return out
}
