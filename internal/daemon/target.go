package daemon

import (
	"errors"
	"strings"
	"time"

	"field-execd/internal/sshpool"
)

// resolveTarget validates t and derives the pool Key plus the auth material
// needed to dial it, applying the exact validation messages a client's error
// string is allowed to rely on.
func resolveTarget(t Target) (sshpool.Key, sshpool.AuthMaterial, error) {
	if strings.TrimSpace(t.Host) == "" {
		return sshpool.Key{}, sshpool.AuthMaterial{}, errors.New("host is empty")
	}
	if strings.TrimSpace(t.Username) == "" {
		return sshpool.Key{}, sshpool.AuthMaterial{}, errors.New("username is empty")
	}
	if t.Port < 1 || t.Port > 65535 {
		return sshpool.Key{}, sshpool.AuthMaterial{}, errors.New("invalid port")
	}

	switch t.Auth.Kind {
	case "key":
		if strings.TrimSpace(t.Auth.PrivateKeyPEM) == "" {
			return sshpool.Key{}, sshpool.AuthMaterial{}, errors.New("private_key_pem is empty")
		}
		key := sshpool.NewKeyFromPrivateKey(t.Host, t.Port, t.Username, t.Auth.PrivateKeyPEM)
		auth := sshpool.AuthMaterial{PrivateKeyPEM: t.Auth.PrivateKeyPEM, PrivateKeyPassword: t.Auth.PrivateKeyPassphrase}
		return key, auth, nil
	case "password":
		if strings.TrimSpace(t.Auth.Password) == "" {
			return sshpool.Key{}, sshpool.AuthMaterial{}, errors.New("password is empty")
		}
		key := sshpool.NewKeyFromPassword(t.Host, t.Port, t.Username, t.Auth.Password)
		auth := sshpool.AuthMaterial{Password: t.Auth.Password}
		return key, auth, nil
	default:
		return sshpool.Key{}, sshpool.AuthMaterial{}, errors.New("auth.kind must be key or password")
	}
}

// millis converts a client-supplied millisecond count to a Duration, never
// letting a zero or negative value produce an instantly-expiring timeout.
func millis(ms int64) time.Duration {
	if ms < 1 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}
