// Package sshpool caches authenticated SSH sessions by Key, reconnecting on
// transient loss and offering both one-shot and streaming command execution.
package sshpool

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// AuthMaterial supplies the credential for a connect attempt. Exactly one of
// PrivateKeyPEM or Password is meaningful, selected by Key.Kind.
type AuthMaterial struct {
	PrivateKeyPEM      string
	PrivateKeyPassword string
	Password           string
}

// Session is a live, authenticated SSH client cached by the Pool. It is
// shared by reference across concurrent callers while cached.
type Session struct {
	client *ssh.Client
}

// Pool maps Keys to at most one live Session. The map is guarded by a mutex
// held only across map operations, never across an SSH call.
type Pool struct {
	mu       sync.Mutex
	sessions map[Key]*Session
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{sessions: make(map[Key]*Session)}
}

// GetOrConnect returns the cached Session for key if present; otherwise it
// dials a fresh authenticated connection bounded by connectTimeout, caches
// it, and returns it. Concurrent calls for the same key may each dial; the
// last writer wins, which is an accepted, documented race.
func (p *Pool) GetOrConnect(ctx context.Context, key Key, auth AuthMaterial, connectTimeout time.Duration) (*Session, error) {
	p.mu.Lock()
	sess, ok := p.sessions[key]
	p.mu.Unlock()
	if ok {
		return sess, nil
	}

	client, err := dial(ctx, key, auth, connectTimeout)
	if err != nil {
		return nil, err
	}
	sess = &Session{client: client}

	p.mu.Lock()
	p.sessions[key] = sess
	p.mu.Unlock()
	return sess, nil
}

// Evict drops the cached Session for key, if any, and closes its client
// connection.
func (p *Pool) Evict(key Key) {
	p.mu.Lock()
	sess, ok := p.sessions[key]
	if ok {
		delete(p.sessions, key)
	}
	p.mu.Unlock()
	if ok {
		sess.client.Close()
	}
}

// FlushAll atomically empties the pool and returns the number of sessions
// dropped.
func (p *Pool) FlushAll() int {
	p.mu.Lock()
	sessions := p.sessions
	p.sessions = make(map[Key]*Session)
	p.mu.Unlock()
	for _, sess := range sessions {
		sess.client.Close()
	}
	return len(sessions)
}

// dial opens a fresh authenticated SSH connection for key, bounded by
// timeout. Host-key verification is deliberately disabled: trust in the
// target is the caller's responsibility.
func dial(ctx context.Context, key Key, auth AuthMaterial, timeout time.Duration) (*ssh.Client, error) {
	authMethods, err := authMethodsFor(key.Kind, auth)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            key.Username,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", key.Host, key.Port)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH connect timeout: %w", err)
	}

	type result struct {
		client *ssh.Client
		err    error
	}
	done := make(chan result, 1)
	go func() {
		sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{client: ssh.NewClient(sshConn, chans, reqs)}
	}()

	select {
	case <-ctx.Done():
		conn.Close()
		return nil, fmt.Errorf("SSH connect timeout: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return res.client, nil
	}
}

func authMethodsFor(kind AuthKind, auth AuthMaterial) ([]ssh.AuthMethod, error) {
	switch kind {
	case AuthPassword:
		return []ssh.AuthMethod{ssh.Password(auth.Password)}, nil
	case AuthKey:
		signer, err := parseSigner(auth.PrivateKeyPEM, auth.PrivateKeyPassword)
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	default:
		return nil, fmt.Errorf("unknown auth kind %v", kind)
	}
}

func parseSigner(pemData, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase([]byte(pemData), []byte(passphrase))
	}
	return ssh.ParsePrivateKey([]byte(pemData))
}
