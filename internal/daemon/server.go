// Package daemon implements field-execd's request-handling engine: the
// hello-gated loopback protocol, the SSH session pool, and the streaming
// command executor.
package daemon

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"

	"field-execd/internal/sshpool"
	"field-execd/internal/statefile"
)

// Options configures a daemon run.
type Options struct {
	Port      int
	StateFile string
	Protocol  int
}

// Run binds the loopback listener, publishes the state file, and serves
// connections until the listener is closed or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", opts.Port))
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	token, err := statefile.NewToken()
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}

	protocol := opts.Protocol
	if protocol == 0 {
		protocol = 1
	}

	if err := statefile.Write(opts.StateFile, statefile.State{
		Version:  1,
		PID:      os.Getpid(),
		Port:     addr.Port,
		Token:    token,
		Protocol: protocol,
	}); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	log.Printf("[Bootstrap] listening on %s, state file %s", addr, opts.StateFile)

	cfg := Config{Token: token, Protocol: protocol}
	pool := sshpool.New()
	nextStreamID := &idCounter{}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go handleConnection(ctx, cfg, pool, nextStreamID, conn)
	}
}
