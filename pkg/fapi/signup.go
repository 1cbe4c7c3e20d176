package fapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
)

// SignUpParams creates or updates a sign-up attempt. All fields are optional;
// the instance's auth configuration decides which are required before the
// sign-up can complete.
type SignUpParams struct {
	Strategy       string
	FirstName      string
	LastName       string
	Username       string
	EmailAddress   string
	PhoneNumber    string
	Password       string
	Ticket         string
	Code           string
	Token          string
	Web3Wallet     string
	UnsafeMetadata string
	RedirectURL    string
	CaptchaToken   string
	Transfer       bool
	// LegalAccepted is tri-state: nil omits the field entirely so an
	// unanswered requirement is not mistaken for a refusal.
	LegalAccepted *bool
}

func (p SignUpParams) form() url.Values {
	form := url.Values{}
	setNonEmpty(form, "strategy", p.Strategy)
	setNonEmpty(form, "first_name", p.FirstName)
	setNonEmpty(form, "last_name", p.LastName)
	setNonEmpty(form, "username", p.Username)
	setNonEmpty(form, "email_address", p.EmailAddress)
	setNonEmpty(form, "phone_number", p.PhoneNumber)
	setNonEmpty(form, "password", p.Password)
	setNonEmpty(form, "ticket", p.Ticket)
	setNonEmpty(form, "code", p.Code)
	setNonEmpty(form, "token", p.Token)
	setNonEmpty(form, "web3_wallet", p.Web3Wallet)
	setNonEmpty(form, "unsafe_metadata", p.UnsafeMetadata)
	setNonEmpty(form, "redirect_url", p.RedirectURL)
	setNonEmpty(form, "captcha_token", p.CaptchaToken)
	if p.Transfer {
		form.Set("transfer", "true")
	}
	if p.LegalAccepted != nil {
		form.Set("legal_accepted", fmt.Sprintf("%t", *p.LegalAccepted))
	}
	return form
}

// SignUpVerificationParams prepares or attempts verification of a sign-up
// field such as an email address or phone number.
type SignUpVerificationParams struct {
	Strategy  string
	Code      string
	Token     string
	Signature string
}

func (p SignUpVerificationParams) form() url.Values {
	form := url.Values{}
	setNonEmpty(form, "strategy", p.Strategy)
	setNonEmpty(form, "code", p.Code)
	setNonEmpty(form, "token", p.Token)
	setNonEmpty(form, "signature", p.Signature)
	return form
}

// CreateSignUp starts a new sign-up attempt on the client.
func (c *Client) CreateSignUp(ctx context.Context, params SignUpParams) (*api.SignUp, error) {
	var signUp api.SignUp
	if err := c.doEnveloped(ctx, "create_sign_up", http.MethodPost, "/client/sign_ups", params.form(), &signUp); err != nil {
		return nil, err
	}
	return &signUp, nil
}

// GetSignUp fetches the current state of a sign-up attempt.
func (c *Client) GetSignUp(ctx context.Context, signUpID string) (*api.SignUp, error) {
	var signUp api.SignUp
	path := fmt.Sprintf("/client/sign_ups/%s", url.PathEscape(signUpID))
	if err := c.doEnveloped(ctx, "get_sign_up", http.MethodGet, path, nil, &signUp); err != nil {
		return nil, err
	}
	return &signUp, nil
}

// UpdateSignUp patches missing fields onto an in-progress sign-up attempt.
func (c *Client) UpdateSignUp(ctx context.Context, signUpID string, params SignUpParams) (*api.SignUp, error) {
	var signUp api.SignUp
	path := fmt.Sprintf("/client/sign_ups/%s", url.PathEscape(signUpID))
	if err := c.doEnveloped(ctx, "update_sign_up", http.MethodPatch, path, params.form(), &signUp); err != nil {
		return nil, err
	}
	return &signUp, nil
}

// PrepareSignUpVerification asks the Frontend API to start verifying a
// sign-up field, e.g. sending an email code.
func (c *Client) PrepareSignUpVerification(ctx context.Context, signUpID string, params SignUpVerificationParams) (*api.SignUp, error) {
	var signUp api.SignUp
	path := fmt.Sprintf("/client/sign_ups/%s/prepare_verification", url.PathEscape(signUpID))
	if err := c.doEnveloped(ctx, "prepare_sign_up_verification", http.MethodPost, path, params.form(), &signUp); err != nil {
		return nil, err
	}
	return &signUp, nil
}

// AttemptSignUpVerification submits verification proof for a sign-up field.
func (c *Client) AttemptSignUpVerification(ctx context.Context, signUpID string, params SignUpVerificationParams) (*api.SignUp, error) {
	var signUp api.SignUp
	path := fmt.Sprintf("/client/sign_ups/%s/attempt_verification", url.PathEscape(signUpID))
	if err := c.doEnveloped(ctx, "attempt_sign_up_verification", http.MethodPost, path, params.form(), &signUp); err != nil {
		return nil, err
	}
	return &signUp, nil
}
