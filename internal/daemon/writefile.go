package daemon

import (
	"context"
	"fmt"
	"strings"

	"field-execd/internal/shquote"
	"field-execd/internal/sshpool"
)

// writeFile runs the single composite remote command that writes contents
// to remote_path: parent directory created mode 700, file piped in via stdin
// to "cat >" (which writes the file in place), then chmod 600. Exit code 0 is success; anything else, or a
// transport error, is surfaced, evicting the pool key on transient failure.
func writeFile(ctx context.Context, pool *sshpool.Pool, target Target, remotePath, contents string, connectTimeoutMs, commandTimeoutMs int64) error {
	key, auth, err := resolveTarget(target)
	if err != nil {
		return err
	}
	connectTimeout := millis(connectTimeoutMs)
	commandTimeout := millis(commandTimeoutMs)

	sess, err := pool.GetOrConnect(ctx, key, auth, connectTimeout)
	if err != nil {
		return err
	}

	execCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	quoted := shquote.Quote(remotePath)
	command := strings.Join([]string{
		"umask 077",
		fmt.Sprintf("dir=$(dirname %s)", quoted),
		`mkdir -p "$dir"`,
		`chmod 700 "$dir" >/dev/null 2>&1 || true`,
		fmt.Sprintf("cat > %s", quoted),
		fmt.Sprintf("chmod 600 %s >/dev/null 2>&1 || true", quoted),
	}, "; ")

	stdin := make(chan []byte, 2)
	stdin <- []byte(contents)
	stdin <- nil
	close(stdin)

	exitCode, err := sshpool.ExecIO(execCtx, sess, command, sshpool.IOStreams{
		Stdout:     func([]byte) {},
		Stderr:     func([]byte) {},
		StdinChunk: stdin,
	})
	if err != nil {
		if sshpool.IsTransientReconnect(err) {
			pool.Evict(key)
		}
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("write failed (exit=%d)", exitCode)
	}
	return nil
}
