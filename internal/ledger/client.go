// Package ledger is the HTTP client for the central sale ledger. Every
// call is bearer-token authenticated and every response is validated at
// the boundary before it is allowed to touch local state.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/session"
)

// Client talks to the central ledger server
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a ledger client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// PushSales submits a batch of offline sales. The ledger returns one
// outcome per submitted record; totals in the payload are advisory and
// may be overridden server-side.
func (c *Client) PushSales(ctx context.Context, sess *session.Session, sales []models.OfflineSaleRecord) (*SyncResult, error) {
	body := map[string]interface{}{"sales": sales}

	var result SyncResult
	if err := c.do(ctx, sess, http.MethodPost, "/sales/sync", nil, body, &result); err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, &MalformedResponseError{Op: "push", Reason: err.Error()}
	}
	return &result, nil
}

// OfflineStatus returns the ledger's current view of a seller's offline
// sales. sellerID is only honored for reviewer sessions; empty means the
// session's own seller.
func (c *Client) OfflineStatus(ctx context.Context, sess *session.Session, sellerID string) ([]RemoteSale, error) {
	query := url.Values{}
	if sellerID != "" {
		query.Set("sellerId", sellerID)
	}

	var resp struct {
		Sales []RemoteSale `json:"sales"`
	}
	if err := c.do(ctx, sess, http.MethodGet, "/sales/offline/status", query, nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Sales {
		if err := resp.Sales[i].Validate(); err != nil {
			return nil, &MalformedResponseError{Op: "offline status", Reason: err.Error()}
		}
	}
	return resp.Sales, nil
}

// SaleByUUID fetches the canonical sale for a client-generated id.
// Returns ErrNotFound when the ledger has no record of it.
func (c *Client) SaleByUUID(ctx context.Context, sess *session.Session, id string) (*RemoteSale, error) {
	var sale RemoteSale
	if err := c.do(ctx, sess, http.MethodGet, "/sales/by-uuid/"+url.PathEscape(id), nil, nil, &sale); err != nil {
		return nil, err
	}
	if err := sale.Validate(); err != nil {
		return nil, &MalformedResponseError{Op: "sale by uuid", Reason: err.Error()}
	}
	return &sale, nil
}

// SaleByFolio resolves a folio to its canonical sale.
// Returns ErrNotFound when no sale carries the folio.
func (c *Client) SaleByFolio(ctx context.Context, sess *session.Session, folio string) (*RemoteSale, error) {
	query := url.Values{}
	query.Set("folio", folio)
	query.Set("limit", "1")

	var resp struct {
		Sales []RemoteSale `json:"sales"`
	}
	if err := c.do(ctx, sess, http.MethodGet, "/sales", query, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Sales) == 0 {
		return nil, ErrNotFound
	}
	sale := resp.Sales[0]
	if err := sale.Validate(); err != nil {
		return nil, &MalformedResponseError{Op: "sale by folio", Reason: err.Error()}
	}
	return &sale, nil
}

// ResolveConflict submits a reviewer resolution against a server-side sale
func (c *Client) ResolveConflict(ctx context.Context, sess *session.Session, action models.ConflictResolutionAction) error {
	return c.do(ctx, sess, http.MethodPost, "/sales/conflicts/resolve", nil, action, nil)
}

// do performs one authenticated round trip and classifies the outcome
func (c *Client) do(ctx context.Context, sess *session.Session, method, path string, query url.Values, body, out interface{}) error {
	if err := sess.Valid(); err != nil {
		return err
	}

	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ServerError{Op: method + " " + path, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &MalformedResponseError{Op: method + " " + path, Reason: err.Error()}
	}
	return nil
}
