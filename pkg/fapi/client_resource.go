package fapi

import (
	"context"
	"net/http"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
)

// GetClient fetches the current device client. A device with no Clerk state
// yet gets a null payload; callers receive ErrNoClient in that case and
// typically follow up with CreateClient.
func (c *Client) GetClient(ctx context.Context) (*api.Client, error) {
	return c.clientRequest(ctx, "get_client", http.MethodGet)
}

// CreateClient creates a fresh device client.
func (c *Client) CreateClient(ctx context.Context) (*api.Client, error) {
	return c.clientRequest(ctx, "create_client", http.MethodPost)
}

// PutClient replaces the device client.
func (c *Client) PutClient(ctx context.Context) (*api.Client, error) {
	return c.clientRequest(ctx, "put_client", http.MethodPut)
}

func (c *Client) clientRequest(ctx context.Context, operation, method string) (*api.Client, error) {
	var client api.Client
	if err := c.doEnveloped(ctx, operation, method, "/client", nil, &client); err != nil {
		return nil, err
	}
	if client.ID == "" {
		return nil, ErrNoClient
	}
	return &client, nil
}

// RemoveClientSessions signs out every session on this client while keeping
// the device cookie, so the next sign-in reuses the same client. The updated
// client arrives through the piggyback mechanism.
func (c *Client) RemoveClientSessions(ctx context.Context) error {
	return c.doEnveloped(ctx, "remove_client_sessions", http.MethodDelete, "/client/sessions", nil, nil)
}

// CreateDevBrowser asks a development instance to mint a dev browser token.
// The token itself arrives via the Authorization response header and lands in
// the store through the usual capture path; the body carries nothing useful.
func (c *Client) CreateDevBrowser(ctx context.Context) error {
	return c.doRaw(ctx, "create_dev_browser", http.MethodPost, "/dev_browser", nil, nil)
}
