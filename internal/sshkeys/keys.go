// Package sshkeys generates Ed25519 keypairs in OpenSSH PEM format and
// derives authorized_keys lines from them.
package sshkeys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// GenerateKey creates a fresh Ed25519 keypair and returns the private key
// encoded as an OpenSSH PEM block with LF line endings, carrying comment.
func GenerateKey(comment string) (string, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return "", fmt.Errorf("marshal private key: %w", err)
	}

	return string(pem.EncodeToMemory(block)), nil
}

// AuthorizedKeyLine parses privateKeyPEM (optionally passphrase-protected)
// and renders its public half as a single authorized_keys line ending in
// comment, regardless of any comment embedded in the PEM itself.
func AuthorizedKeyLine(privateKeyPEM, passphrase, comment string) (string, error) {
	signer, err := parseSigner(privateKeyPEM, passphrase)
	if err != nil {
		return "", err
	}
	return authorizedKeyLine(signer.PublicKey(), comment), nil
}

func authorizedKeyLine(pub ssh.PublicKey, comment string) string {
	return fmt.Sprintf("%s %s %s", pub.Type(), base64.StdEncoding.EncodeToString(pub.Marshal()), comment)
}

func parseSigner(pemData, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		signer, err := ssh.ParsePrivateKeyWithPassphrase([]byte(pemData), []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return signer, nil
	}
	signer, err := ssh.ParsePrivateKey([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return signer, nil
}
