package fapi

import (
	"context"
	"net/http"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
)

// GetEnvironment fetches the instance configuration. The environment
// endpoint responds with the bare payload, not the envelope.
func (c *Client) GetEnvironment(ctx context.Context) (*api.Environment, error) {
	var environment api.Environment
	if err := c.doRaw(ctx, "get_environment", http.MethodGet, "/environment", nil, &environment); err != nil {
		return nil, err
	}
	return &environment, nil
}
