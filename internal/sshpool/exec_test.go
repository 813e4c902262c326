package sshpool

import (
	"bytes"
	"context"
	"testing"
	"time"

	"field-execd/internal/sshtest"
)

func connectTestSession(t *testing.T, srv *sshtest.Server) *Session {
	t.Helper()
	pool := New()
	key := testKey(t, srv)
	sess, err := pool.GetOrConnect(context.Background(), key, AuthMaterial{Password: srv.Password}, 5*time.Second)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return sess
}

func TestExecOnceCapturesOutput(t *testing.T) {
	srv := startTestServer(t, "secret")
	sess := connectTestSession(t, srv)

	res, err := ExecOnce(context.Background(), sess, "echo hi", 5*time.Second)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if res.Stdout != "hi\n" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
}

func TestExecOnceNonZeroExit(t *testing.T) {
	srv := startTestServer(t, "secret")
	sess := connectTestSession(t, srv)

	res, err := ExecOnce(context.Background(), sess, "exit 7", 5*time.Second)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if res.ExitCode != 7 {
		t.Errorf("exit code = %d, want 7", res.ExitCode)
	}
}

func TestExecOnceTimeout(t *testing.T) {
	srv := startTestServer(t, "secret")
	sess := connectTestSession(t, srv)

	_, err := ExecOnce(context.Background(), sess, "sleep 5", 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestExecIOStreamsChunks(t *testing.T) {
	srv := startTestServer(t, "secret")
	sess := connectTestSession(t, srv)

	var stdout, stderr bytes.Buffer
	code, err := ExecIO(context.Background(), sess, "echo out; echo err 1>&2", IOStreams{
		Stdout: func(c []byte) { stdout.Write(c) },
		Stderr: func(c []byte) { stderr.Write(c) },
	})
	if err != nil {
		t.Fatalf("exec io: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d", code)
	}
	if stdout.String() != "out\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if stderr.String() != "err\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestExecIOWithStdin(t *testing.T) {
	srv := startTestServer(t, "secret")
	sess := connectTestSession(t, srv)

	stdin := make(chan []byte, 2)
	stdin <- []byte("piped input\n")
	stdin <- nil
	close(stdin)

	var stdout bytes.Buffer
	code, err := ExecIO(context.Background(), sess, "cat", IOStreams{
		Stdout:     func(c []byte) { stdout.Write(c) },
		Stderr:     func(c []byte) {},
		StdinChunk: stdin,
	})
	if err != nil {
		t.Fatalf("exec io: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d", code)
	}
	if stdout.String() != "piped input\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}
