package api

import "encoding/json"

// User is the full account record embedded in an active session. Organization
// memberships ride along so the active organization can be resolved without a
// second request.
type User struct {
	Object                    string                   `json:"object,omitempty"`
	ID                        string                   `json:"id"`
	Username                  string                   `json:"username,omitempty"`
	FirstName                 string                   `json:"first_name,omitempty"`
	LastName                  string                   `json:"last_name,omitempty"`
	ImageURL                  string                   `json:"image_url,omitempty"`
	HasImage                  bool                     `json:"has_image,omitempty"`
	PrimaryEmailAddressID     string                   `json:"primary_email_address_id,omitempty"`
	PrimaryPhoneNumberID      string                   `json:"primary_phone_number_id,omitempty"`
	PrimaryWeb3WalletID       string                   `json:"primary_web3_wallet_id,omitempty"`
	PasswordEnabled           bool                     `json:"password_enabled,omitempty"`
	TwoFactorEnabled          bool                     `json:"two_factor_enabled,omitempty"`
	TOTPEnabled               bool                     `json:"totp_enabled,omitempty"`
	BackupCodeEnabled         bool                     `json:"backup_code_enabled,omitempty"`
	EmailAddresses            []EmailAddress           `json:"email_addresses,omitempty"`
	PhoneNumbers              []PhoneNumber            `json:"phone_numbers,omitempty"`
	ExternalAccounts          json.RawMessage          `json:"external_accounts,omitempty"`
	OrganizationMemberships   []OrganizationMembership `json:"organization_memberships,omitempty"`
	PublicMetadata            json.RawMessage          `json:"public_metadata,omitempty"`
	UnsafeMetadata            json.RawMessage          `json:"unsafe_metadata,omitempty"`
	ExternalID                string                   `json:"external_id,omitempty"`
	CreateOrganizationEnabled bool                     `json:"create_organization_enabled,omitempty"`
	DeleteSelfEnabled         bool                     `json:"delete_self_enabled,omitempty"`
	LastSignInAt              int64                    `json:"last_sign_in_at,omitempty"`
	LastActiveAt              int64                    `json:"last_active_at,omitempty"`
	CreatedAt                 int64                    `json:"created_at,omitempty"`
	UpdatedAt                 int64                    `json:"updated_at,omitempty"`
}

// MembershipByOrganizationID returns the membership whose organization has
// the given ID, or nil when the user holds no such membership.
func (u *User) MembershipByOrganizationID(orgID string) *OrganizationMembership {
	if u == nil || orgID == "" {
		return nil
	}
	for i := range u.OrganizationMemberships {
		if u.OrganizationMemberships[i].Organization.ID == orgID {
			return &u.OrganizationMemberships[i]
		}
	}
	return nil
}

// MembershipMatching returns the first membership naming the organization
// identified by an ID or slug, per the MatchesIdentifier convention. Nil when
// the user holds no such membership.
func (u *User) MembershipMatching(identifier string) *OrganizationMembership {
	if u == nil || identifier == "" {
		return nil
	}
	for i := range u.OrganizationMemberships {
		if u.OrganizationMemberships[i].MatchesIdentifier(identifier) {
			return &u.OrganizationMemberships[i]
		}
	}
	return nil
}

// PrimaryEmailAddress returns the email address record referenced by
// PrimaryEmailAddressID, or nil when unset.
func (u *User) PrimaryEmailAddress() *EmailAddress {
	if u == nil || u.PrimaryEmailAddressID == "" {
		return nil
	}
	for i := range u.EmailAddresses {
		if u.EmailAddresses[i].ID == u.PrimaryEmailAddressID {
			return &u.EmailAddresses[i]
		}
	}
	return nil
}

// EmailAddress is a verified or pending email identification on a user.
type EmailAddress struct {
	Object       string          `json:"object,omitempty"`
	ID           string          `json:"id"`
	EmailAddress string          `json:"email_address"`
	Verification *Verification   `json:"verification,omitempty"`
	LinkedTo     json.RawMessage `json:"linked_to,omitempty"`
}

// PhoneNumber is a phone identification on a user.
type PhoneNumber struct {
	Object         string        `json:"object,omitempty"`
	ID             string        `json:"id"`
	PhoneNumber    string        `json:"phone_number"`
	ReservedForMFA bool          `json:"reserved_for_second_factor,omitempty"`
	DefaultForMFA  bool          `json:"default_second_factor,omitempty"`
	Verification   *Verification `json:"verification,omitempty"`
}

// Verification records the state of an identification or factor check.
type Verification struct {
	Status   string `json:"status,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	Attempts int64  `json:"attempts,omitempty"`
	ExpireAt int64  `json:"expire_at,omitempty"`
}
