package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"field-execd/internal/shquote"
	"field-execd/internal/sshkeys"
	"field-execd/internal/sshpool"
)

const (
	installConnectTimeout = 10 * time.Second
	installCommandTimeout = 30 * time.Second
)

// installPublicKey derives an authorized_keys line from the supplied private
// key and comment, then appends it to the target user's authorized_keys file
// over a fresh, unpooled, password-authenticated session, unless the line is
// already present.
func installPublicKey(ctx context.Context, userAtHost string, port int, password, privateKeyPEM, passphrase, comment string) error {
	username, host, err := splitUserAtHost(userAtHost)
	if err != nil {
		return err
	}

	line, err := sshkeys.AuthorizedKeyLine(privateKeyPEM, passphrase, comment)
	if err != nil {
		return err
	}
	quoted := shquote.Quote(line)

	command := strings.Join([]string{
		"umask 077",
		"mkdir -p ~/.ssh",
		"chmod 700 ~/.ssh",
		"touch ~/.ssh/authorized_keys",
		"chmod 600 ~/.ssh/authorized_keys",
		fmt.Sprintf("grep -qxF %s ~/.ssh/authorized_keys || printf '%%s\\n' %s >> ~/.ssh/authorized_keys", quoted, quoted),
	}, "; ")

	key := sshpool.NewKeyFromPassword(host, port, username, password)
	auth := sshpool.AuthMaterial{Password: password}

	pool := sshpool.New()
	defer pool.FlushAll()

	sess, err := pool.GetOrConnect(ctx, key, auth, installConnectTimeout)
	if err != nil {
		return err
	}

	res, err := sshpool.ExecOnce(ctx, sess, command, installCommandTimeout)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("write failed (exit=%d)", res.ExitCode)
	}
	return nil
}

func splitUserAtHost(userAtHost string) (username, host string, err error) {
	idx := strings.IndexByte(userAtHost, '@')
	if idx < 0 {
		return "", "", errors.New("user_at_host must be username@host")
	}
	username, host = userAtHost[:idx], userAtHost[idx+1:]
	if strings.TrimSpace(username) == "" || strings.TrimSpace(host) == "" {
		return "", "", errors.New("user_at_host must be username@host")
	}
	return username, host, nil
}
