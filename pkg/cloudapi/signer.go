package cloudapi

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// requestSigner signs the Date header of outgoing requests in the
// HTTP-Signature scheme CloudAPI expects.
type requestSigner struct {
	// keyID is the CloudAPI key reference, "/<account>/keys/<fingerprint>".
	keyID string

	algorithm string
	sign      func(data []byte) ([]byte, error)
}

// newRequestSigner loads the private key at keyPath and prepares a signer
// for the given account and key fingerprint. A leading ~ in keyPath is
// expanded to the user's home directory.
func newRequestSigner(account, keyFingerprint, keyPath string) (*requestSigner, error) {
	expanded, err := expandHome(keyPath)
	if err != nil {
		return nil, err
	}

	pemBytes, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("reading private key %s: %w", expanded, err)
	}

	rawKey, err := ssh.ParseRawPrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key %s: %w", expanded, err)
	}

	s := &requestSigner{
		keyID: fmt.Sprintf("/%s/keys/%s", account, keyFingerprint),
	}

	switch key := rawKey.(type) {
	case *rsa.PrivateKey:
		s.algorithm = "rsa-sha256"
		s.sign = func(data []byte) ([]byte, error) {
			digest := sha256.Sum256(data)
			return rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
		}
	case *ed25519.PrivateKey:
		s.algorithm = "ed25519"
		s.sign = func(data []byte) ([]byte, error) {
			return ed25519.Sign(*key, data), nil
		}
	case ed25519.PrivateKey:
		s.algorithm = "ed25519"
		s.sign = func(data []byte) ([]byte, error) {
			return ed25519.Sign(key, data), nil
		}
	default:
		return nil, fmt.Errorf("unsupported private key type %T", rawKey)
	}

	return s, nil
}

// SignDate signs the Date header value and returns the Authorization
// header.
func (s *requestSigner) SignDate(date string) (string, error) {
	sig, err := s.sign([]byte(date))
	if err != nil {
		return "", fmt.Errorf("signing request date: %w", err)
	}

	return fmt.Sprintf("Signature keyId=%q,algorithm=%q,signature=%q",
		s.keyID, s.algorithm, base64.StdEncoding.EncodeToString(sig)), nil
}

// expandHome replaces a leading ~ with the current user's home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
