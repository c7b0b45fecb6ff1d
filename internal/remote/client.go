// Package remote is the HTTP client for the shared multi-tenant backend.
// Every request is scoped by the dealer id in the path; the client maps
// transport and status failures to the shared sentinel errors so callers
// can decide between retry and surfacing.
package remote

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

	"github.com/ezcar24/dealersync/internal/common"
	"github.com/ezcar24/dealersync/internal/models"
)

// serverTimeHeader carries the server clock on pull responses. The sync
// checkpoint is advanced to this value, never to the device clock.
const serverTimeHeader = "X-Sync-Timestamp"

// TokenProvider supplies the access token attached to every request.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
}

func NewClient(baseURL string, tokens TokenProvider, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// Upsert pushes the full record, tombstone included, to the remote store.
// Deletes travel through here too: a delete is an upsert whose payload
// carries deleted_at.
func (c *Client) Upsert(ctx context.Context, dealerID string, rec models.Record) error {
	endpoint := fmt.Sprintf("%s/%s/%s/%s",
		c.baseURL, url.PathEscape(dealerID), rec.Kind.Collection(), url.PathEscape(rec.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(rec.Payload))
	if err != nil {
		return fmt.Errorf("build upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer drain(resp)

	return mapStatus(resp.StatusCode)
}

// Pull returns records of the given kind changed since the given time,
// along with the server-reported time of the snapshot. A zero since pulls
// the full collection.
func (c *Client) Pull(ctx context.Context, dealerID string, kind models.EntityKind, since time.Time) ([]models.Record, time.Time, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(dealerID), kind.Collection())
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("build pull request: %w", err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer drain(resp)

	if err := mapStatus(resp.StatusCode); err != nil {
		return nil, time.Time{}, err
	}

	var payloads []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode pull response: %w", err)
	}

	recs := make([]models.Record, 0, len(payloads))
	for _, p := range payloads {
		rec, err := models.RecordFromPayload(kind, p)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("decode %s record: %w", kind, err)
		}
		recs = append(recs, rec)
	}

	return recs, serverTime(resp), nil
}

// Count returns the number of live records of the given kind on the
// remote store. Used by diagnostics only.
func (c *Client) Count(ctx context.Context, dealerID string, kind models.EntityKind) (int64, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/count", c.baseURL, url.PathEscape(dealerID), kind.Collection())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build count request: %w", err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return 0, err
	}
	defer drain(resp)

	if err := mapStatus(resp.StatusCode); err != nil {
		return 0, err
	}

	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return body.Count, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return resp, nil
}

// mapStatus translates HTTP status codes into the shared error taxonomy:
// 5xx is transient, auth failures are unauthorized, other 4xx are
// permanent rejections the queue should not retry forever.
func mapStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", common.ErrUnauthorized, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", common.ErrNotFound, code)
	case code >= 400 && code < 500:
		return fmt.Errorf("%w: status %d", common.ErrRejected, code)
	default:
		return fmt.Errorf("%w: status %d", common.ErrUnavailable, code)
	}
}

// serverTime extracts the server clock from a pull response. Zero when no
// header is usable; callers must not substitute the device clock, a skewed
// one would advance the checkpoint past unseen changes.
func serverTime(resp *http.Response) time.Time {
	if v := resp.Header.Get(serverTimeHeader); v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	if t, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
		return t
	}
	return time.Time{}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
