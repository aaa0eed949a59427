// Package client is the certledger Go SDK.
//
// It wraps the certledger HTTP API: committing certificates, reconciled
// reads, invalidation, mirror repair, and ledger inspection. Error responses
// carry a stable category string which the client decodes into the sentinel
// errors below, so callers can branch with errors.Is instead of matching
// message text.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors decoded from the server's error categories.
var (
	ErrNotFound           = errors.New("certificate not found")
	ErrAlreadyInvalid     = errors.New("certificate is already invalid")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrValidation         = errors.New("validation error")
	ErrInconsistency      = errors.New("server reported a data inconsistency")
	ErrIntegrityViolation = errors.New("server reported an integrity violation")
	ErrUnavailable        = errors.New("service unavailable")
)

// Certificate is the reconciled certificate view returned by Get.
type Certificate struct {
	CertificateID    string    `json:"certificateId"`
	ProductID        string    `json:"productId"`
	ManufacturerID   string    `json:"manufacturerId"`
	CertifyingBodyID string    `json:"certifyingBodyId"`
	IssueDate        string    `json:"issueDate"`
	ExpiryDate       string    `json:"expiryDate"`
	LastUpdated      time.Time `json:"lastUpdated"`
	IsValid          bool      `json:"isValid"`
	OffchainDataHash string    `json:"offchainDataHash"`
}

// AddCertificateRequest is the payload for Add.
type AddCertificateRequest struct {
	CertificateID    string `json:"certificateId"`
	ProductID        string `json:"productId"`
	ManufacturerID   string `json:"manufacturerId"`
	CertifyingBodyID string `json:"certifyingBodyId"`
	IssueDate        string `json:"issueDate"`
	ExpiryDate       string `json:"expiryDate"`
}

// RepairResult reports what a repair call changed.
type RepairResult struct {
	Repaired bool `json:"repaired"`
	IsValid  bool `json:"isValid"`
}

// Commit is one entry of a certificate's ledger history.
type Commit struct {
	Sequence         int64     `json:"sequence"`
	OffchainDataHash string    `json:"offchainDataHash"`
	IsValid          bool      `json:"isValid"`
	Signer           string    `json:"signer"`
	TxHash           string    `json:"txHash"`
	GasUsed          int64     `json:"gasUsed"`
	Timestamp        time.Time `json:"timestamp"`
}

// Client is the certledger SDK entry point.
type Client struct {
	base       string
	httpClient *http.Client
	token      string
	signer     string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken attaches a signer token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithSigner sets a plain signer address (X-Signer header) instead of a
// token. Intended for local demo servers.
func WithSigner(address string) Option {
	return func(c *Client) { c.signer = address }
}

// New creates a Client for the given server base URL.
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchToken mints a demo signer token for the given address (empty selects
// the server's default signer) and attaches it to subsequent requests.
func (c *Client) FetchToken(ctx context.Context, address string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/token", map[string]string{"address": address}, &out)
	if err != nil {
		return "", err
	}
	c.token = out.Token
	return out.Token, nil
}

// Add commits a certificate and returns the ledger transaction hash.
func (c *Client) Add(ctx context.Context, req *AddCertificateRequest) (string, error) {
	var out struct {
		TxHash string `json:"txHash"`
	}
	if err := c.do(ctx, http.MethodPost, "/addCertificate", req, &out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

// Get fetches the reconciled certificate view.
func (c *Client) Get(ctx context.Context, id string) (*Certificate, error) {
	var out struct {
		Data *Certificate `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/getCertificate/"+id, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Invalidate flips a certificate's validity flag on the ledger.
func (c *Client) Invalidate(ctx context.Context, id string) (string, error) {
	var out struct {
		TxHash string `json:"txHash"`
	}
	if err := c.do(ctx, http.MethodPost, "/invalidateCertificate/"+id, nil, &out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

// Repair re-syncs the store's validity mirror from the ledger.
func (c *Client) Repair(ctx context.Context, id string) (*RepairResult, error) {
	out := &RepairResult{}
	if err := c.do(ctx, http.MethodPost, "/repairCertificate/"+id, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// History returns the ledger commit history for a certificate.
func (c *Client) History(ctx context.Context, id string) ([]Commit, error) {
	var out struct {
		Commitments []Commit `json:"commitments"`
	}
	if err := c.do(ctx, http.MethodGet, "/ledger/commitments/"+id, nil, &out); err != nil {
		return nil, err
	}
	return out.Commitments, nil
}

// Height returns the total number of ledger commits.
func (c *Client) Height(ctx context.Context) (int64, error) {
	var out struct {
		Height int64 `json:"height"`
	}
	if err := c.do(ctx, http.MethodGet, "/ledger", nil, &out); err != nil {
		return 0, err
	}
	return out.Height, nil
}

// do performs one API call, decoding the success envelope into out and
// error envelopes into sentinel errors.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.signer != "" {
		req.Header.Set("X-Signer", c.signer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// decodeError maps the server's error envelope onto sentinel errors.
func decodeError(status int, data []byte) error {
	var env struct {
		Category string `json:"category"`
		Message  string `json:"message"`
	}
	_ = json.Unmarshal(data, &env)
	if env.Message == "" {
		env.Message = http.StatusText(status)
	}

	var sentinel error
	switch env.Category {
	case "not_found":
		sentinel = ErrNotFound
	case "already_invalid":
		sentinel = ErrAlreadyInvalid
	case "permission_denied":
		sentinel = ErrPermissionDenied
	case "validation_error", "rejected":
		sentinel = ErrValidation
	case "inconsistency":
		sentinel = ErrInconsistency
	case "integrity_violation":
		sentinel = ErrIntegrityViolation
	case "ledger_unavailable", "store_unavailable", "not_ready":
		sentinel = ErrUnavailable
	default:
		return fmt.Errorf("server error (%d): %s", status, env.Message)
	}
	return fmt.Errorf("%w: %s", sentinel, env.Message)
}
