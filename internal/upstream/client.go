// Package upstream implements the HTTP client for the remote Order API: the
// three listing endpoints the ordering engine composes from, and the
// order-creation endpoint it submits to.
package upstream

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

	"github.com/pharmalink/portal/internal/ordering"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *Client) FetchProducts(ctx context.Context) ([]ordering.Product, error) {
	elems, err := c.fetchList(ctx, "/products", nil)
	if err != nil {
		return nil, err
	}
	out := make([]ordering.Product, 0, len(elems))
	for _, raw := range elems {
		var p ordering.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			c.log.Warn().Err(err).Msg("skipping malformed product record")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) FetchInventory(ctx context.Context, q ordering.InventoryQuery) ([]ordering.InventoryRecord, error) {
	params := url.Values{}
	if q.SupplierID != "" {
		params.Set("supplier", q.SupplierID)
	}
	if q.LowStock {
		params.Set("low_stock", "true")
	}
	elems, err := c.fetchList(ctx, "/inventory", params)
	if err != nil {
		return nil, err
	}
	out := make([]ordering.InventoryRecord, 0, len(elems))
	for _, raw := range elems {
		var rec ordering.InventoryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			c.log.Warn().Err(err).Msg("skipping malformed inventory record")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Client) FetchStock(ctx context.Context) ([]ordering.StockRecord, error) {
	elems, err := c.fetchList(ctx, "/stocks", nil)
	if err != nil {
		return nil, err
	}
	out := make([]ordering.StockRecord, 0, len(elems))
	for _, raw := range elems {
		var rec ordering.StockRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			c.log.Warn().Err(err).Msg("skipping malformed stock record")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// CreateOrder posts the order-creation request. A rejection surfaces the
// server's message verbatim through *ordering.SubmissionError.
func (c *Client) CreateOrder(ctx context.Context, orderReq ordering.OrderRequest) (*ordering.OrderAck, error) {
	body, err := json.Marshal(orderReq)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		// Network failure: no server message to surface, callers fall back
		// to the generic submission-failed reason.
		return nil, fmt.Errorf("POST /orders: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read order response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ordering.SubmissionError{
			StatusCode: resp.StatusCode,
			Message:    serverMessage(respBody),
		}
	}

	var ack struct {
		OrderID  string `json:"orderId"`
		ID       string `json:"id"`
		LegacyID string `json:"_id"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &ack); err != nil {
		// The order was accepted even if the ack body is unreadable.
		c.log.Warn().Err(err).Msg("order accepted but ack body was unreadable")
	}
	ref := ack.OrderID
	if ref == "" {
		ref = ack.ID
	}
	if ref == "" {
		ref = ack.LegacyID
	}
	return &ordering.OrderAck{OrderRef: ref, Message: ack.Message}, nil
}

// fetchList GETs a listing endpoint and unwraps its envelope. An
// unrecognized envelope degrades to an empty list with a warning rather
// than an error.
func (c *Client) fetchList(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	elems, ok := UnwrapList(body)
	if !ok {
		c.log.Warn().Str("path", path).Msg("unrecognized listing envelope, treating source as empty")
		return nil, nil
	}
	return elems, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// serverMessage extracts a human-readable rejection reason from an error
// response body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
