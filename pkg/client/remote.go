package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/CGeorges/tradingboard/pkg/watchlist"
)

// APIError is a non-2xx response from the remote store.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a remote 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Remote talks to the watchlist HTTP API.
type Remote struct {
	baseURL string
	http    *http.Client
}

// NewRemote creates a client for the API at baseURL (e.g.
// "http://localhost:3001/api"). Requests time out after timeout.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// LoadAll fetches the full watchlist set from the remote store.
func (r *Remote) LoadAll(ctx context.Context) ([]watchlist.Watchlist, error) {
	var lists []watchlist.Watchlist
	if err := r.do(ctx, http.MethodGet, "/watchlists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// Save upserts a single watchlist: update first, and when the remote has
// never seen the id (404), create it instead.
func (r *Remote) Save(ctx context.Context, w watchlist.Watchlist) error {
	err := r.do(ctx, http.MethodPut, "/watchlists/"+w.ID, w, nil)
	if IsNotFound(err) {
		return r.do(ctx, http.MethodPost, "/watchlists", w, nil)
	}
	return err
}

// Delete removes a watchlist from the remote store. A remote 404 is
// treated as success: the record is gone either way.
func (r *Remote) Delete(ctx context.Context, id string) error {
	err := r.do(ctx, http.MethodDelete, "/watchlists/"+id, nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// BulkSave replaces the entire remote watchlist set.
func (r *Remote) BulkSave(ctx context.Context, lists []watchlist.Watchlist) error {
	body := map[string]any{"watchlists": lists}
	return r.do(ctx, http.MethodPost, "/watchlists/bulk", body, nil)
}

func (r *Remote) do(ctx context.Context, method, path string, payload, out any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return fmt.Errorf("%s %s: encode: %w", method, path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Message == "" {
			errBody.Message = resp.Status
		}
		return fmt.Errorf("%s %s: %w", method, path, &APIError{
			Status:  resp.StatusCode,
			Message: errBody.Message,
		})
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: decode: %w", method, path, err)
		}
	}
	return nil
}
