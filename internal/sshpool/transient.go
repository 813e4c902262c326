package sshpool

import (
	"errors"
	"io"
	"net"
	"strings"

	"golang.org/x/crypto/ssh"
)

// IsTransientReconnect reports whether err is one of the bounded set of
// transport failures the pool treats as recoverable: it evicts the session
// and allows exactly one silent retry. Anything else (auth failure, bad key,
// a plain command timeout) is permanent and surfaces verbatim.
func IsTransientReconnect(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}

	var sshErr *ssh.OpenChannelError
	if errors.As(err, &sshErr) {
		return false
	}

	msg := err.Error()
	for _, needle := range []string{
		"ssh: unexpected packet",
		"ssh: disconnect",
		"send on closed channel",
		"broken pipe",
		"connection reset",
		"connection aborted",
		"use of closed network connection",
		"not connected",
		"unexpected EOF",
		"timed out",
		"i/o timeout",
		"EOF",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
