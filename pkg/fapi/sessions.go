package fapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
)

// CreateSessionToken mints a session JWT, optionally scoped to an
// organization. The token endpoint responds with the bare token payload.
func (c *Client) CreateSessionToken(ctx context.Context, sessionID, organizationID string) (*api.Token, error) {
	form := url.Values{}
	if organizationID != "" {
		form.Set("organization_id", organizationID)
	}

	var token api.Token
	path := fmt.Sprintf("/client/sessions/%s/tokens", url.PathEscape(sessionID))
	if err := c.doRaw(ctx, "create_session_token", http.MethodPost, path, form, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// CreateSessionTokenWithTemplate mints a session JWT shaped by a named JWT
// template configured on the instance.
func (c *Client) CreateSessionTokenWithTemplate(ctx context.Context, sessionID, template string) (*api.Token, error) {
	var token api.Token
	path := fmt.Sprintf("/client/sessions/%s/tokens/%s", url.PathEscape(sessionID), url.PathEscape(template))
	if err := c.doRaw(ctx, "create_session_token_with_template", http.MethodPost, path, url.Values{}, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// TouchSession marks the session as the most recently active one and
// optionally activates an organization on it. The refreshed client arrives
// via the piggyback mechanism.
func (c *Client) TouchSession(ctx context.Context, sessionID, activeOrganizationID string) (*api.Session, error) {
	form := url.Values{}
	if activeOrganizationID != "" {
		form.Set("active_organization_id", activeOrganizationID)
	}

	var session api.Session
	path := fmt.Sprintf("/client/sessions/%s/touch", url.PathEscape(sessionID))
	if err := c.doEnveloped(ctx, "touch_session", http.MethodPost, path, form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RemoveSession signs out one session.
func (c *Client) RemoveSession(ctx context.Context, sessionID string) (*api.Session, error) {
	var session api.Session
	path := fmt.Sprintf("/client/sessions/%s/remove", url.PathEscape(sessionID))
	if err := c.doEnveloped(ctx, "remove_session", http.MethodPost, path, url.Values{}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// EndSession ends a session without removing it from the client, leaving it
// visible with an ended status.
func (c *Client) EndSession(ctx context.Context, sessionID string) (*api.Session, error) {
	var session api.Session
	path := fmt.Sprintf("/client/sessions/%s/end", url.PathEscape(sessionID))
	if err := c.doEnveloped(ctx, "end_session", http.MethodPost, path, url.Values{}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
