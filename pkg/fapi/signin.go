package fapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
)

// SignInCreateParams starts a sign-in attempt. Providing a strategy with an
// identifier (or a ticket) lets the Frontend API begin verification in the
// same call; all fields are optional.
type SignInCreateParams struct {
	Strategy                  string
	Identifier                string
	Password                  string
	Ticket                    string
	Code                      string
	Token                     string
	RedirectURL               string
	ActionCompleteRedirectURL string
	Transfer                  bool
}

func (p SignInCreateParams) form() url.Values {
	form := url.Values{}
	setNonEmpty(form, "strategy", p.Strategy)
	setNonEmpty(form, "identifier", p.Identifier)
	setNonEmpty(form, "password", p.Password)
	setNonEmpty(form, "ticket", p.Ticket)
	setNonEmpty(form, "code", p.Code)
	setNonEmpty(form, "token", p.Token)
	setNonEmpty(form, "redirect_url", p.RedirectURL)
	setNonEmpty(form, "action_complete_redirect_url", p.ActionCompleteRedirectURL)
	if p.Transfer {
		form.Set("transfer", "true")
	}
	return form
}

// SignInFactorParams prepares or attempts a sign-in verification factor.
// Prepare calls use Strategy plus the identification selectors; attempt calls
// use Strategy plus the proof fields (Code, Password, Ticket, Token,
// Signature).
type SignInFactorParams struct {
	Strategy       string
	EmailAddressID string
	PhoneNumberID  string
	Code           string
	Password       string
	Ticket         string
	Token          string
	Signature      string
	RedirectURL    string
}

func (p SignInFactorParams) form() url.Values {
	form := url.Values{}
	setNonEmpty(form, "strategy", p.Strategy)
	setNonEmpty(form, "email_address_id", p.EmailAddressID)
	setNonEmpty(form, "phone_number_id", p.PhoneNumberID)
	setNonEmpty(form, "code", p.Code)
	setNonEmpty(form, "password", p.Password)
	setNonEmpty(form, "ticket", p.Ticket)
	setNonEmpty(form, "token", p.Token)
	setNonEmpty(form, "signature", p.Signature)
	setNonEmpty(form, "redirect_url", p.RedirectURL)
	return form
}

// CreateSignIn starts a new sign-in attempt on the client.
func (c *Client) CreateSignIn(ctx context.Context, params SignInCreateParams) (*api.SignIn, error) {
	var signIn api.SignIn
	if err := c.doEnveloped(ctx, "create_sign_in", http.MethodPost, "/client/sign_ins", params.form(), &signIn); err != nil {
		return nil, err
	}
	return &signIn, nil
}

// GetSignIn fetches the current state of a sign-in attempt.
func (c *Client) GetSignIn(ctx context.Context, signInID string) (*api.SignIn, error) {
	var signIn api.SignIn
	path := fmt.Sprintf("/client/sign_ins/%s", url.PathEscape(signInID))
	if err := c.doEnveloped(ctx, "get_sign_in", http.MethodGet, path, nil, &signIn); err != nil {
		return nil, err
	}
	return &signIn, nil
}

// PrepareSignInFirstFactor asks the Frontend API to start first factor
// verification, e.g. sending an email code.
func (c *Client) PrepareSignInFirstFactor(ctx context.Context, signInID string, params SignInFactorParams) (*api.SignIn, error) {
	return c.signInFactor(ctx, "prepare_sign_in_factor_one", signInID, "prepare_first_factor", params)
}

// AttemptSignInFirstFactor submits first factor proof.
func (c *Client) AttemptSignInFirstFactor(ctx context.Context, signInID string, params SignInFactorParams) (*api.SignIn, error) {
	return c.signInFactor(ctx, "attempt_sign_in_factor_one", signInID, "attempt_first_factor", params)
}

// PrepareSignInSecondFactor asks the Frontend API to start second factor
// verification.
func (c *Client) PrepareSignInSecondFactor(ctx context.Context, signInID string, params SignInFactorParams) (*api.SignIn, error) {
	return c.signInFactor(ctx, "prepare_sign_in_factor_two", signInID, "prepare_second_factor", params)
}

// AttemptSignInSecondFactor submits second factor proof.
func (c *Client) AttemptSignInSecondFactor(ctx context.Context, signInID string, params SignInFactorParams) (*api.SignIn, error) {
	return c.signInFactor(ctx, "attempt_sign_in_factor_two", signInID, "attempt_second_factor", params)
}

func (c *Client) signInFactor(ctx context.Context, operation, signInID, action string, params SignInFactorParams) (*api.SignIn, error) {
	var signIn api.SignIn
	path := fmt.Sprintf("/client/sign_ins/%s/%s", url.PathEscape(signInID), action)
	if err := c.doEnveloped(ctx, operation, http.MethodPost, path, params.form(), &signIn); err != nil {
		return nil, err
	}
	return &signIn, nil
}

func setNonEmpty(form url.Values, key, value string) {
	if value != "" {
		form.Set(key, value)
	}
}
