package api

import "encoding/json"

// SessionStatus is the lifecycle state of a Session as reported by the
// Frontend API.
type SessionStatus string

// Session statuses returned by the Frontend API.
const (
	SessionStatusAbandoned SessionStatus = "abandoned"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusEnded     SessionStatus = "ended"
	SessionStatusExpired   SessionStatus = "expired"
	SessionStatusRemoved   SessionStatus = "removed"
	SessionStatusReplaced  SessionStatus = "replaced"
	SessionStatusRevoked   SessionStatus = "revoked"
)

// Client is the device-scoped root resource. It tracks the in-progress
// sign-in and sign-up attempts, every session known to this device, and which
// of those sessions was most recently active.
type Client struct {
	Object              string    `json:"object,omitempty"`
	ID                  string    `json:"id"`
	SignIn              *SignIn   `json:"sign_in"`
	SignUp              *SignUp   `json:"sign_up"`
	Sessions            []Session `json:"sessions"`
	LastActiveSessionID string    `json:"last_active_session_id,omitempty"`
	CookieExpiresAt     *int64    `json:"cookie_expires_at,omitempty"`
	CaptchaBypass       bool      `json:"captcha_bypass,omitempty"`
	CreatedAt           int64     `json:"created_at,omitempty"`
	UpdatedAt           int64     `json:"updated_at,omitempty"`
}

// SessionByID returns the session with the given ID, or nil when the client
// holds no such session.
func (c *Client) SessionByID(id string) *Session {
	if c == nil || id == "" {
		return nil
	}
	for i := range c.Sessions {
		if c.Sessions[i].ID == id {
			return &c.Sessions[i]
		}
	}
	return nil
}

// ActiveSessions returns the subset of sessions whose status is active.
func (c *Client) ActiveSessions() []Session {
	if c == nil {
		return nil
	}
	var out []Session
	for _, s := range c.Sessions {
		if s.Status == SessionStatusActive {
			out = append(out, s)
		}
	}
	return out
}

// Session is a signed-in presence of a user on this device. The embedded User
// is the authoritative copy the state derivation reads from; PublicUserData is
// the reduced projection safe to render before the full user loads.
type Session struct {
	Object                   string          `json:"object,omitempty"`
	ID                       string          `json:"id"`
	Status                   SessionStatus   `json:"status"`
	ExpireAt                 int64           `json:"expire_at,omitempty"`
	AbandonAt                int64           `json:"abandon_at,omitempty"`
	LastActiveAt             int64           `json:"last_active_at,omitempty"`
	LastActiveOrganizationID string          `json:"last_active_organization_id,omitempty"`
	Actor                    json.RawMessage `json:"actor,omitempty"`
	User                     *User           `json:"user"`
	PublicUserData           *PublicUserData `json:"public_user_data,omitempty"`
	FactorVerificationAge    []int64         `json:"factor_verification_age,omitempty"`
	CreatedAt                int64           `json:"created_at,omitempty"`
	UpdatedAt                int64           `json:"updated_at,omitempty"`
	LastActiveToken          *Token          `json:"last_active_token,omitempty"`
}

// PublicUserData is the trimmed user projection embedded in sessions.
type PublicUserData struct {
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	HasImage   bool   `json:"has_image,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// Token is the JWT carrier returned by the session token endpoints.
type Token struct {
	Object string `json:"object,omitempty"`
	JWT    string `json:"jwt"`
}
