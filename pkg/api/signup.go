package api

import "encoding/json"

// SignUpStatus is the progress state of a sign-up attempt.
type SignUpStatus string

// Sign-up statuses returned by the Frontend API.
const (
	SignUpStatusMissingRequirements SignUpStatus = "missing_requirements"
	SignUpStatusComplete            SignUpStatus = "complete"
	SignUpStatusAbandoned           SignUpStatus = "abandoned"
)

// SignUp is an in-progress registration attempt attached to the client. The
// field lists track which attributes the instance still requires before the
// attempt can complete.
type SignUp struct {
	Object           string              `json:"object,omitempty"`
	ID               string              `json:"id"`
	Status           SignUpStatus        `json:"status"`
	RequiredFields   []string            `json:"required_fields,omitempty"`
	OptionalFields   []string            `json:"optional_fields,omitempty"`
	MissingFields    []string            `json:"missing_fields,omitempty"`
	UnverifiedFields []string            `json:"unverified_fields,omitempty"`
	Verifications    SignUpVerifications `json:"verifications,omitempty"`
	Username         string              `json:"username,omitempty"`
	EmailAddress     string              `json:"email_address,omitempty"`
	PhoneNumber      string              `json:"phone_number,omitempty"`
	Web3Wallet       string              `json:"web3_wallet,omitempty"`
	PasswordEnabled  bool                `json:"password_enabled,omitempty"`
	FirstName        string              `json:"first_name,omitempty"`
	LastName         string              `json:"last_name,omitempty"`
	UnsafeMetadata   json.RawMessage     `json:"unsafe_metadata,omitempty"`
	CustomAction     bool                `json:"custom_action,omitempty"`
	ExternalID       string              `json:"external_id,omitempty"`
	CreatedSessionID string              `json:"created_session_id,omitempty"`
	CreatedUserID    string              `json:"created_user_id,omitempty"`
	LegalAcceptedAt  int64               `json:"legal_accepted_at,omitempty"`
	AbandonAt        int64               `json:"abandon_at,omitempty"`
}

// SignUpVerifications groups the per-attribute verification states of a
// sign-up attempt.
type SignUpVerifications struct {
	EmailAddress    *Verification `json:"email_address,omitempty"`
	PhoneNumber     *Verification `json:"phone_number,omitempty"`
	Web3Wallet      *Verification `json:"web3_wallet,omitempty"`
	ExternalAccount *Verification `json:"external_account,omitempty"`
}

// IsComplete reports whether the attempt finished and produced a session.
func (s *SignUp) IsComplete() bool {
	return s != nil && s.Status == SignUpStatusComplete
}
