package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"net"
	"strings"

	"field-execd/internal/protocol"
	"field-execd/internal/sshpool"
)

// connectionState holds everything a dispatched request needs: the shared
// daemon-wide pool and config, and this connection's own outbox, stream
// table, and authenticated flag.
type connectionState struct {
	cfg          Config
	pool         *sshpool.Pool
	nextStreamID *idCounter

	out     *outbox
	streams *streamTable
	authed  bool
	closing bool
}

// handleConnection services one accepted TCP client for its entire
// lifetime: it enforces the hello handshake, dispatches every subsequent
// request, and on disconnect sweeps every live stream before tearing down
// the writer.
func handleConnection(ctx context.Context, cfg Config, pool *sshpool.Pool, nextStreamID *idCounter, conn net.Conn) {
	defer conn.Close()

	out := newOutbox()
	writer := bufio.NewWriter(conn)
	writerDone := make(chan struct{})
	go func() {
		out.run(writer)
		close(writerDone)
	}()

	state := &connectionState{
		cfg:          cfg,
		pool:         pool,
		nextStreamID: nextStreamID,
		out:          out,
		streams:      newStreamTable(),
	}

	reader := bufio.NewReader(conn)
	for {
		line, readErr := reader.ReadString('\n')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			processLine(ctx, state, trimmed)
		}
		if readErr != nil || state.closing {
			break
		}
	}

	resetAllStreams(state.streams, out, "connection closed")

	out.close()
	<-writerDone
	log.Printf("[Conn] connection from %s closed", conn.RemoteAddr())
}

// processLine parses one frame and either drives the hello handshake gate or
// dispatches an already-authenticated request. Frames that fail to parse as
// a request envelope are dropped silently.
func processLine(ctx context.Context, state *connectionState, line string) {
	var req protocol.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return
	}

	if !state.authed {
		if req.Method != "hello" {
			state.out.send(protocol.ErrResponse(req.ID, "unauthorized"))
			state.closing = true
			return
		}
		if !handleHello(state, req) {
			state.closing = true
			return
		}
		state.authed = true
		return
	}

	if !dispatch(ctx, state, req) {
		state.closing = true
	}
}
