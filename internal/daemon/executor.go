package daemon

import (
	"context"

	"field-execd/internal/lineframe"
	"field-execd/internal/protocol"
	"field-execd/internal/sshpool"
)

// execOnce runs cmd once against target, retrying exactly once on a
// transient-reconnect error before surfacing it verbatim.
func execOnce(ctx context.Context, pool *sshpool.Pool, target Target, cmd string, connectTimeoutMs, commandTimeoutMs int64) (sshExecResult, error) {
	key, auth, err := resolveTarget(target)
	if err != nil {
		return sshExecResult{}, err
	}
	connectTimeout := millis(connectTimeoutMs)
	commandTimeout := millis(commandTimeoutMs)

	sess, err := pool.GetOrConnect(ctx, key, auth, connectTimeout)
	if err != nil {
		return sshExecResult{}, err
	}

	res, err := sshpool.ExecOnce(ctx, sess, cmd, commandTimeout)
	if err == nil {
		return sshExecResult{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}, nil
	}
	if !sshpool.IsTransientReconnect(err) {
		return sshExecResult{}, err
	}

	pool.Evict(key)
	sess, err = pool.GetOrConnect(ctx, key, auth, connectTimeout)
	if err != nil {
		return sshExecResult{}, err
	}
	res, err = sshpool.ExecOnce(ctx, sess, cmd, commandTimeout)
	if err != nil {
		return sshExecResult{}, err
	}
	return sshExecResult{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}, nil
}

// startStream obtains a session, allocates a stream_id, and spawns the
// supervised task that drives the streaming command. It returns the
// stream_id synchronously so the caller can respond before any event for it
// is emitted, per the required ordering.
func startStream(parentCtx context.Context, pool *sshpool.Pool, table *streamTable, out *outbox, nextID *idCounter, target Target, cmd string, connectTimeoutMs int64) (uint64, error) {
	key, auth, err := resolveTarget(target)
	if err != nil {
		return 0, err
	}
	connectTimeout := millis(connectTimeoutMs)

	sess, err := pool.GetOrConnect(parentCtx, key, auth, connectTimeout)
	if err != nil {
		return 0, err
	}

	streamID := nextID.next()
	ctx, cancel := context.WithCancel(context.Background())
	ms := &managedStream{id: streamID, cancel: cancel}
	table.insert(ms)

	go runStreamTask(ctx, ms, pool, key, sess, cmd, table, out)

	return streamID, nil
}

func runStreamTask(ctx context.Context, ms *managedStream, pool *sshpool.Pool, key sshpool.Key, sess *sshpool.Session, cmd string, table *streamTable, out *outbox) {
	var stdoutFrame, stderrFrame lineframe.Extractor

	emitLines := func(isStderr bool, lines []string) {
		for _, line := range lines {
			out.send(protocol.NewStreamLineEvent(ms.id, isStderr, line))
		}
	}

	exitCode, execErr := sshpool.ExecIO(ctx, sess, cmd, sshpool.IOStreams{
		Stdout: func(chunk []byte) { emitLines(false, stdoutFrame.Push(chunk)) },
		Stderr: func(chunk []byte) { emitLines(true, stderrFrame.Push(chunk)) },
	})

	if line, ok := stdoutFrame.DrainFinal(); ok {
		out.send(protocol.NewStreamLineEvent(ms.id, false, line))
	}
	if line, ok := stderrFrame.DrainFinal(); ok {
		out.send(protocol.NewStreamLineEvent(ms.id, true, line))
	}

	table.remove(ms.id)

	if execErr == nil {
		ms.finish(out, exitCode, "")
		return
	}
	if sshpool.IsTransientReconnect(execErr) {
		pool.Evict(key)
	}
	ms.finish(out, -1, execErr.Error())
}

// cancelStream aborts the named stream if it is still live, synthesizing its
// terminal stream_exit with errMsg. Cancelling an unknown or already-exited
// stream is idempotent and emits nothing.
func cancelStream(table *streamTable, out *outbox, streamID uint64, errMsg string) {
	ms, ok := table.remove(streamID)
	if !ok {
		return
	}
	ms.cancel()
	ms.finish(out, -1, errMsg)
}

// resetAllStreams aborts every stream on this connection, synthesizing each
// one's terminal stream_exit with reason, and returns how many it swept.
func resetAllStreams(table *streamTable, out *outbox, reason string) int {
	streams := table.drainAll()
	for _, ms := range streams {
		ms.cancel()
		ms.finish(out, -1, reason)
	}
	return len(streams)
}
