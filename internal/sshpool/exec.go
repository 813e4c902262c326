package sshpool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// ExecResult is the outcome of ExecOnce.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int32
}

// ExecOnce runs cmd on sess, collecting all output into memory, and returns
// once the remote command exits or commandTimeout elapses. On timeout no
// partial result is returned.
func ExecOnce(ctx context.Context, sess *Session, cmd string, commandTimeout time.Duration) (ExecResult, error) {
	session, err := sess.client.NewSession()
	if err != nil {
		return ExecResult{}, err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Start(cmd); err != nil {
		return ExecResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		session.Close()
		return ExecResult{}, errors.New("SSH command timeout")
	case err := <-done:
		return ExecResult{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: exitCodeOf(err),
		}, nil
	}
}

// exitCodeOf reduces a session.Wait() error into the casting rules the
// executor uses everywhere: success is 0, and anything that doesn't cleanly
// carry a small exit status is represented as -1.
func exitCodeOf(err error) int32 {
	if err == nil {
		return 0
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		status := exitErr.ExitStatus()
		if status < -2147483648 || status > 2147483647 {
			return -1
		}
		return int32(status)
	}
	return -1
}

// IOStreams are the sinks and source ExecIO drives concurrently. StdinChunk
// may be nil, meaning no stdin is sent. An empty chunk read from StdinChunk
// signals EOF on stdin.
type IOStreams struct {
	Stdout     func(chunk []byte)
	Stderr     func(chunk []byte)
	StdinChunk <-chan []byte
}

// ExecIO runs cmd on sess, pumping stdout/stderr chunks to the IOStreams
// sinks and, if provided, stdin chunks from the source, until the remote
// side exits. It returns the casted exit code or a transport error.
func ExecIO(ctx context.Context, sess *Session, cmd string, streams IOStreams) (int32, error) {
	session, err := sess.client.NewSession()
	if err != nil {
		return -1, err
	}
	defer session.Close()

	stdoutPipe, err := session.StdoutPipe()
	if err != nil {
		return -1, err
	}
	stderrPipe, err := session.StderrPipe()
	if err != nil {
		return -1, err
	}

	var stdinPipe io.WriteCloser
	if streams.StdinChunk != nil {
		stdinPipe, err = session.StdinPipe()
		if err != nil {
			return -1, err
		}
	}

	if err := session.Start(cmd); err != nil {
		return -1, err
	}

	var pumpWG sync.WaitGroup
	pumpWG.Add(2)
	go func() { defer pumpWG.Done(); pumpReader(stdoutPipe, streams.Stdout) }()
	go func() { defer pumpWG.Done(); pumpReader(stderrPipe, streams.Stderr) }()

	if stdinPipe != nil {
		go pumpStdin(stdinPipe, streams.StdinChunk)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- session.Wait() }()

	select {
	case <-ctx.Done():
		session.Close()
		pumpWG.Wait()
		return -1, fmt.Errorf("SSH command timeout: %w", ctx.Err())
	case err := <-waitErr:
		pumpWG.Wait()
		return exitCodeOf(err), nil
	}
}

func pumpReader(r io.Reader, sink func([]byte)) {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			sink(chunk)
		}
		if err != nil {
			return
		}
	}
}

func pumpStdin(w io.WriteCloser, chunks <-chan []byte) {
	defer w.Close()
	for chunk := range chunks {
		if len(chunk) == 0 {
			return
		}
		if _, err := w.Write(chunk); err != nil {
			return
		}
	}
}
