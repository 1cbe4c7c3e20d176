package api

import "encoding/json"

// SignInStatus is the progress state of a sign-in attempt.
type SignInStatus string

// Sign-in statuses returned by the Frontend API.
const (
	SignInStatusNeedsIdentifier   SignInStatus = "needs_identifier"
	SignInStatusNeedsFirstFactor  SignInStatus = "needs_first_factor"
	SignInStatusNeedsSecondFactor SignInStatus = "needs_second_factor"
	SignInStatusNeedsNewPassword  SignInStatus = "needs_new_password"
	SignInStatusComplete          SignInStatus = "complete"
	SignInStatusAbandoned         SignInStatus = "abandoned"
)

// SignIn is an in-progress sign-in attempt attached to the client. Once its
// status reaches complete, CreatedSessionID names the session that was
// established.
type SignIn struct {
	Object                   string          `json:"object,omitempty"`
	ID                       string          `json:"id"`
	Status                   SignInStatus    `json:"status"`
	SupportedIdentifiers     []string        `json:"supported_identifiers,omitempty"`
	SupportedFirstFactors    []SignInFactor  `json:"supported_first_factors,omitempty"`
	SupportedSecondFactors   []SignInFactor  `json:"supported_second_factors,omitempty"`
	FirstFactorVerification  *Verification   `json:"first_factor_verification,omitempty"`
	SecondFactorVerification *Verification   `json:"second_factor_verification,omitempty"`
	Identifier               string          `json:"identifier,omitempty"`
	UserData                 json.RawMessage `json:"user_data,omitempty"`
	CreatedSessionID         string          `json:"created_session_id,omitempty"`
	AbandonAt                int64           `json:"abandon_at,omitempty"`
}

// SignInFactor describes one verification strategy the attempt may use,
// together with the identification it applies to.
type SignInFactor struct {
	Strategy       string `json:"strategy"`
	EmailAddressID string `json:"email_address_id,omitempty"`
	PhoneNumberID  string `json:"phone_number_id,omitempty"`
	SafeIdentifier string `json:"safe_identifier,omitempty"`
	Primary        bool   `json:"primary,omitempty"`
	Default        bool   `json:"default,omitempty"`
}

// IsComplete reports whether the attempt finished and produced a session.
func (s *SignIn) IsComplete() bool {
	return s != nil && s.Status == SignInStatusComplete
}
