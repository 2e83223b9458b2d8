package cloudapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// apiVersion is the CloudAPI version negotiated on every request.
const apiVersion = "~7.0"

// Client talks to a single SmartDataCenter datacenter endpoint on behalf
// of one account.
type Client struct {
	endpoint   *url.URL
	account    string
	signer     *requestSigner
	httpClient *http.Client
	logger     zerolog.Logger
}

// Options configure a Client.
type Options struct {
	// Location is the datacenter hostname or URL, e.g.
	// "us-east-1.api.joyentcloud.com". A bare hostname gets https.
	Location string

	// Account is the CloudAPI login.
	Account string

	// KeyID is the fingerprint of the SSH public key registered under
	// the account.
	KeyID string

	// SecretKeyPath is the matching private key used for request
	// signing. A leading ~ is expanded.
	SecretKeyPath string

	// HTTPClient overrides the default HTTP client. Optional.
	HTTPClient *http.Client

	// Logger is used for request-level debug logging. Optional.
	Logger zerolog.Logger
}

// New creates a CloudAPI client, loading and validating the signing key
// up front so credential problems surface before any provider call.
func New(opts Options) (*Client, error) {
	if opts.Location == "" {
		return nil, fmt.Errorf("no location provided")
	}
	if opts.Account == "" {
		return nil, fmt.Errorf("no account provided")
	}

	location := opts.Location
	if !strings.Contains(location, "://") {
		location = "https://" + location
	}
	endpoint, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parsing location %q: %w", opts.Location, err)
	}

	signer, err := newRequestSigner(opts.Account, opts.KeyID, opts.SecretKeyPath)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{
		endpoint:   endpoint,
		account:    opts.Account,
		signer:     signer,
		httpClient: httpClient,
		logger:     opts.Logger.With().Str("component", "cloudapi").Logger(),
	}, nil
}

// APIError is a non-2xx CloudAPI response, carrying the provider's own
// code and message unmodified.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("cloudapi: %s (%s, HTTP %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("cloudapi: HTTP %d: %s", e.StatusCode, e.Message)
}

// do issues a signed request and returns the response body. Paths are
// relative to the account root, e.g. "machines/<id>".
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	u := *c.endpoint
	u.Path = fmt.Sprintf("/%s/%s", c.account, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	date := time.Now().UTC().Format(http.TimeFormat)
	auth, err := c.signer.SignDate(date)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Date", date)
	req.Header.Set("Authorization", auth)
	req.Header.Set("Api-Version", apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", u.String()).
		Msg("CloudAPI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudapi request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading cloudapi response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var decoded APIError
		if json.Unmarshal(respBody, &decoded) == nil && decoded.Message != "" {
			apiErr.Code = decoded.Code
			apiErr.Message = decoded.Message
		}
		return nil, apiErr
	}

	return respBody, nil
}
