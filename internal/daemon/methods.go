package daemon

import (
	"context"
	"fmt"

	"field-execd/internal/protocol"
	"field-execd/internal/sshkeys"
)

// Config is the daemon's immutable server-wide configuration.
type Config struct {
	Token    string
	Protocol int
}

// dispatch executes one request on behalf of conn and sends exactly one
// response through conn's outbox (hello failures are the sole case where the
// caller additionally closes the connection). It returns false when the
// connection must close after this request.
func dispatch(ctx context.Context, conn *connectionState, req protocol.Request) bool {
	switch req.Method {
	case "hello":
		return handleHello(conn, req)
	case "ssh.exec":
		handleSSHExec(ctx, conn, req)
	case "ssh.start":
		handleSSHStart(ctx, conn, req)
	case "ssh.cancel":
		handleSSHCancel(conn, req)
	case "ssh.reset_all":
		handleSSHResetAll(conn, req)
	case "ssh.write_file":
		handleSSHWriteFile(ctx, conn, req)
	case "ssh.generate_key":
		handleSSHGenerateKey(conn, req)
	case "ssh.authorized_key_line":
		handleSSHAuthorizedKeyLine(conn, req)
	case "ssh.install_public_key":
		handleSSHInstallPublicKey(ctx, conn, req)
	default:
		conn.out.send(protocol.ErrResponse(req.ID, "unknown method"))
	}
	return true
}

func handleHello(conn *connectionState, req protocol.Request) bool {
	params, err := unmarshalParams[helloParams](req.Params)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, "unauthorized"))
		return false
	}
	if params.Protocol != conn.cfg.Protocol {
		conn.out.send(protocol.ErrResponse(req.ID, fmt.Sprintf("protocol mismatch (client=%d, server=%d)", params.Protocol, conn.cfg.Protocol)))
		return false
	}
	if params.Token != conn.cfg.Token {
		conn.out.send(protocol.ErrResponse(req.ID, "unauthorized"))
		return false
	}
	conn.out.send(protocol.OKResponse(req.ID, helloResult{Protocol: conn.cfg.Protocol}))
	return true
}

func handleSSHExec(ctx context.Context, conn *connectionState, req protocol.Request) {
	params, err := unmarshalParams[sshExecParams](req.Params)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, "malformed params"))
		return
	}
	res, err := execOnce(ctx, conn.pool, params.Target, params.Command, params.ConnectTimeoutMs, params.CommandTimeoutMs)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, err.Error()))
		return
	}
	conn.out.send(protocol.OKResponse(req.ID, res))
}

func handleSSHStart(ctx context.Context, conn *connectionState, req protocol.Request) {
	params, err := unmarshalParams[sshStartParams](req.Params)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, "malformed params"))
		return
	}
	streamID, err := startStream(ctx, conn.pool, conn.streams, conn.out, conn.nextStreamID, params.Target, params.Command, params.ConnectTimeoutMs)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, err.Error()))
		return
	}
	conn.out.send(protocol.OKResponse(req.ID, sshStartResult{StreamID: streamID}))
}

func handleSSHCancel(conn *connectionState, req protocol.Request) {
	params, err := unmarshalParams[sshCancelParams](req.Params)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, "malformed params"))
		return
	}
	cancelStream(conn.streams, conn.out, params.StreamID, "cancelled")
	conn.out.send(protocol.OKResponse(req.ID, cancelledResult{Cancelled: true}))
}

func handleSSHResetAll(conn *connectionState, req protocol.Request) {
	params, err := unmarshalParams[sshResetAllParams](req.Params)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, "malformed params"))
		return
	}
	reason := params.Reason
	if reason == "" {
		reason = "reset"
	}
	cancelled := resetAllStreams(conn.streams, conn.out, reason)
	cleared := conn.pool.FlushAll()
	conn.out.send(protocol.OKResponse(req.ID, sshResetAllResult{ClearedConnections: cleared, CancelledStreams: cancelled}))
}

func handleSSHWriteFile(ctx context.Context, conn *connectionState, req protocol.Request) {
	params, err := unmarshalParams[sshWriteFileParams](req.Params)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, "malformed params"))
		return
	}
	if err := writeFile(ctx, conn.pool, params.Target, params.RemotePath, params.Contents, params.ConnectTimeoutMs, params.CommandTimeoutMs); err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, err.Error()))
		return
	}
	conn.out.send(protocol.OKResponse(req.ID, struct{}{}))
}

func handleSSHGenerateKey(conn *connectionState, req protocol.Request) {
	params, err := unmarshalParams[sshGenerateKeyParams](req.Params)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, "malformed params"))
		return
	}
	pem, err := sshkeys.GenerateKey(params.Comment)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, err.Error()))
		return
	}
	conn.out.send(protocol.OKResponse(req.ID, sshGenerateKeyResult{PrivateKeyPEM: pem}))
}

func handleSSHAuthorizedKeyLine(conn *connectionState, req protocol.Request) {
	params, err := unmarshalParams[sshAuthorizedKeyLineParams](req.Params)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, "malformed params"))
		return
	}
	line, err := sshkeys.AuthorizedKeyLine(params.PrivateKeyPEM, params.PrivateKeyPassphrase, params.Comment)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, err.Error()))
		return
	}
	conn.out.send(protocol.OKResponse(req.ID, sshAuthorizedKeyLineResult{AuthorizedKeyLine: line}))
}

func handleSSHInstallPublicKey(ctx context.Context, conn *connectionState, req protocol.Request) {
	params, err := unmarshalParams[sshInstallPublicKeyParams](req.Params)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, "malformed params"))
		return
	}
	err = installPublicKey(ctx, params.UserAtHost, params.Port, params.Password, params.PrivateKeyPEM, params.PrivateKeyPassphrase, params.Comment)
	if err != nil {
		conn.out.send(protocol.ErrResponse(req.ID, err.Error()))
		return
	}
	conn.out.send(protocol.OKResponse(req.ID, struct{}{}))
}
