package cloudapi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRequestSignerRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	keyPath := filepath.Join(t.TempDir(), "id_rsa")
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("failed to write key: %v", err)
	}

	signer, err := newRequestSigner("ops", "ab:cd:ef", keyPath)
	if err != nil {
		t.Fatalf("newRequestSigner() error = %v", err)
	}
	if signer.keyID != "/ops/keys/ab:cd:ef" {
		t.Errorf("keyID = %q, want /ops/keys/ab:cd:ef", signer.keyID)
	}
	if signer.algorithm != "rsa-sha256" {
		t.Errorf("algorithm = %q, want rsa-sha256", signer.algorithm)
	}

	date := "Sat, 30 Aug 2026 12:00:00 GMT"
	auth, err := signer.SignDate(date)
	if err != nil {
		t.Fatalf("SignDate() error = %v", err)
	}

	// The header carries a verifiable signature over the date string.
	const sigMarker = `signature="`
	idx := strings.Index(auth, sigMarker)
	if idx < 0 {
		t.Fatalf("Authorization header missing signature: %q", auth)
	}
	encoded := strings.TrimSuffix(auth[idx+len(sigMarker):], `"`)
	sig, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("signature is not valid base64: %v", err)
	}

	digest := sha256.Sum256([]byte(date))
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], sig); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
}

func TestRequestSignerRejectsGarbage(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_rsa")
	if err := os.WriteFile(keyPath, []byte("not a key"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := newRequestSigner("ops", "ab:cd", keyPath); err == nil {
		t.Fatal("expected error for unparseable key")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "tilde prefix", in: "~/.ssh/id_rsa", want: filepath.Join(home, ".ssh/id_rsa")},
		{name: "bare tilde", in: "~", want: home},
		{name: "absolute path untouched", in: "/etc/keys/id_rsa", want: "/etc/keys/id_rsa"},
		{name: "relative path untouched", in: "keys/id_rsa", want: "keys/id_rsa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandHome(tt.in)
			if err != nil {
				t.Fatalf("expandHome() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandHome(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
