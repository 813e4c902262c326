package daemon

import "encoding/json"

// Target identifies a remote host and the credential to authenticate with.
type Target struct {
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Auth     AuthSpec `json:"auth"`
}

// AuthSpec is a tagged union selected by Kind: "key" or "password".
type AuthSpec struct {
	Kind                 string `json:"kind"`
	PrivateKeyPEM        string `json:"private_key_pem"`
	PrivateKeyPassphrase string `json:"private_key_passphrase"`
	Password             string `json:"password"`
}

type helloParams struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol"`
}

type helloResult struct {
	Protocol int `json:"protocol"`
}

type sshExecParams struct {
	Target           Target `json:"target"`
	Command          string `json:"command"`
	ConnectTimeoutMs int64  `json:"connect_timeout_ms"`
	CommandTimeoutMs int64  `json:"command_timeout_ms"`
}

type sshExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int32  `json:"exit_code"`
}

type sshStartParams struct {
	Target           Target `json:"target"`
	Command          string `json:"command"`
	ConnectTimeoutMs int64  `json:"connect_timeout_ms"`
}

type sshStartResult struct {
	StreamID uint64 `json:"stream_id"`
}

type sshCancelParams struct {
	StreamID uint64 `json:"stream_id"`
}

type cancelledResult struct {
	Cancelled bool `json:"cancelled"`
}

type sshResetAllParams struct {
	Reason string `json:"reason"`
}

type sshResetAllResult struct {
	ClearedConnections int `json:"cleared_connections"`
	CancelledStreams   int `json:"cancelled_streams"`
}

type sshWriteFileParams struct {
	Target           Target `json:"target"`
	RemotePath       string `json:"remote_path"`
	Contents         string `json:"contents"`
	ConnectTimeoutMs int64  `json:"connect_timeout_ms"`
	CommandTimeoutMs int64  `json:"command_timeout_ms"`
}

type sshGenerateKeyParams struct {
	Comment string `json:"comment"`
}

type sshGenerateKeyResult struct {
	PrivateKeyPEM string `json:"private_key_pem"`
}

type sshAuthorizedKeyLineParams struct {
	PrivateKeyPEM        string `json:"private_key_pem"`
	PrivateKeyPassphrase string `json:"private_key_passphrase"`
	Comment              string `json:"comment"`
}

type sshAuthorizedKeyLineResult struct {
	AuthorizedKeyLine string `json:"authorized_key_line"`
}

type sshInstallPublicKeyParams struct {
	UserAtHost           string `json:"user_at_host"`
	Port                 int    `json:"port"`
	Password             string `json:"password"`
	PrivateKeyPEM        string `json:"private_key_pem"`
	PrivateKeyPassphrase string `json:"private_key_passphrase"`
	Comment              string `json:"comment"`
}

func unmarshalParams[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}
