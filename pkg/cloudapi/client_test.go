package cloudapi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openfroyo/machine-sdc/pkg/machine"
)

// writeTestKey generates an RSA private key and writes it in PEM form,
// returning its path.
func writeTestKey(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}

	path := filepath.Join(t.TempDir(), "id_rsa")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("failed to write key: %v", err)
	}
	return path
}

// newTestClient returns a client pointed at a test server, plus a pointer
// to the last request the server saw and the last request body.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Options{
		Location:      server.URL,
		Account:       "ops",
		KeyID:         "ab:cd:ef",
		SecretKeyPath: writeTestKey(t),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, server
}

func TestNewValidation(t *testing.T) {
	keyPath := writeTestKey(t)

	tests := []struct {
		name string
		opts Options
	}{
		{
			name: "missing location",
			opts: Options{Account: "ops", KeyID: "ab:cd", SecretKeyPath: keyPath},
		},
		{
			name: "missing account",
			opts: Options{Location: "dc.example.com", KeyID: "ab:cd", SecretKeyPath: keyPath},
		},
		{
			name: "missing key file",
			opts: Options{Location: "dc.example.com", Account: "ops", KeyID: "ab:cd", SecretKeyPath: "/nonexistent/id_rsa"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Error("New() = nil error, want failure")
			}
		})
	}
}

func TestRequestHeaders(t *testing.T) {
	var gotReq *http.Request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(r.Context())
		_, _ = w.Write([]byte("[]"))
	})

	if _, err := client.ListMachines(context.Background(), machine.ListFilter{}); err != nil {
		t.Fatalf("ListMachines() error = %v", err)
	}

	if gotReq.Header.Get("Date") == "" {
		t.Error("Date header not set")
	}
	if got := gotReq.Header.Get("Api-Version"); got != "~7.0" {
		t.Errorf("Api-Version = %q, want ~7.0", got)
	}

	auth := gotReq.Header.Get("Authorization")
	wantPrefix := `Signature keyId="/ops/keys/ab:cd:ef",algorithm="rsa-sha256",signature="`
	if !strings.HasPrefix(auth, wantPrefix) {
		t.Errorf("Authorization = %q, want prefix %q", auth, wantPrefix)
	}
}

func TestListMachines(t *testing.T) {
	var gotReq *http.Request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(r.Context())
		_, _ = w.Write([]byte(`[
			{"id": "m-1", "name": "web-1", "state": "running", "tags": {"role": "web"}},
			{"id": "m-2", "name": "web-2", "state": "running", "tags": {"role": "web"}}
		]`))
	})

	machines, err := client.ListMachines(context.Background(), machine.ListFilter{
		Tags:   map[string]string{"role": "web"},
		Status: machine.StatusRunning,
	})
	if err != nil {
		t.Fatalf("ListMachines() error = %v", err)
	}

	if gotReq.URL.Path != "/ops/machines" {
		t.Errorf("path = %q, want /ops/machines", gotReq.URL.Path)
	}
	query := gotReq.URL.Query()
	if got := query.Get("tag.role"); got != "web" {
		t.Errorf("tag.role = %q, want web", got)
	}
	if got := query.Get("state"); got != "running" {
		t.Errorf("state = %q, want running", got)
	}

	if len(machines) != 2 {
		t.Fatalf("machines = %d, want 2", len(machines))
	}
	if machines[0].ID != "m-1" || machines[0].Status != machine.StatusRunning {
		t.Errorf("machine = %+v, want m-1 running", machines[0])
	}
}

func TestCreateMachine(t *testing.T) {
	var gotBody map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "m-9", "name": "web-9", "state": "provisioning", "tags": {"role": "web"}}`))
	})

	m, err := client.CreateMachine(context.Background(), machine.CreateOptions{
		Name:     "web-9",
		Image:    "img-1",
		Package:  "pkg-small",
		Networks: []string{"net-1"},
		Tags:     map[string]string{"role": "web"},
	})
	if err != nil {
		t.Fatalf("CreateMachine() error = %v", err)
	}

	if gotBody["image"] != "img-1" {
		t.Errorf("body image = %v, want img-1", gotBody["image"])
	}
	if gotBody["package"] != "pkg-small" {
		t.Errorf("body package = %v, want pkg-small", gotBody["package"])
	}
	if gotBody["tag.role"] != "web" {
		t.Errorf("body tag.role = %v, want web", gotBody["tag.role"])
	}

	if m.ID != "m-9" {
		t.Errorf("machine ID = %q, want m-9", m.ID)
	}
	if m.Status != machine.StatusProvisioning {
		t.Errorf("machine status = %q, want provisioning", m.Status)
	}
}

func TestStopMachine(t *testing.T) {
	var gotReq *http.Request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})

	if err := client.StopMachine(context.Background(), "m-1"); err != nil {
		t.Fatalf("StopMachine() error = %v", err)
	}

	if gotReq.Method != http.MethodPost {
		t.Errorf("method = %q, want POST", gotReq.Method)
	}
	if gotReq.URL.Path != "/ops/machines/m-1" {
		t.Errorf("path = %q, want /ops/machines/m-1", gotReq.URL.Path)
	}
	if got := gotReq.URL.Query().Get("action"); got != "stop" {
		t.Errorf("action = %q, want stop", got)
	}
}

func TestDeleteMachine(t *testing.T) {
	var gotReq *http.Request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteMachine(context.Background(), "m-1"); err != nil {
		t.Fatalf("DeleteMachine() error = %v", err)
	}

	if gotReq.Method != http.MethodDelete {
		t.Errorf("method = %q, want DELETE", gotReq.Method)
	}
	if gotReq.URL.Path != "/ops/machines/m-1" {
		t.Errorf("path = %q, want /ops/machines/m-1", gotReq.URL.Path)
	}
}

func TestRawMachine(t *testing.T) {
	raw := `{"id":"m-1","state":"running","memory":1024,"ips":["10.0.0.4"]}`
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(raw))
	})

	got, err := client.RawMachine(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("RawMachine() error = %v", err)
	}
	// The record comes back verbatim, provider-only fields included.
	if string(got) != raw {
		t.Errorf("RawMachine() = %s, want %s", got, raw)
	}
}

func TestAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code": "InvalidArgument", "message": "image not found"}`))
	})

	_, err := client.GetMachine(context.Background(), "m-1")
	if err == nil {
		t.Fatal("expected API error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("StatusCode = %d, want 409", apiErr.StatusCode)
	}
	if apiErr.Code != "InvalidArgument" {
		t.Errorf("Code = %q, want InvalidArgument", apiErr.Code)
	}
	if !strings.Contains(apiErr.Error(), "image not found") {
		t.Errorf("Error() = %q, want provider message included", apiErr.Error())
	}
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := client.GetMachine(context.Background(), "m-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.Message != "upstream unavailable" {
		t.Errorf("Message = %q, want raw body", apiErr.Message)
	}
}
