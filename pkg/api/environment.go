package api

import "encoding/json"

// Environment describes the Clerk instance this client talks to: which
// authentication strategies are enabled, how the instance presents itself,
// and whether organizations are available.
type Environment struct {
	AuthConfig           AuthConfig           `json:"auth_config"`
	DisplayConfig        DisplayConfig        `json:"display_config"`
	UserSettings         json.RawMessage      `json:"user_settings,omitempty"`
	OrganizationSettings OrganizationSettings `json:"organization_settings"`
	MaintenanceMode      bool                 `json:"maintenance_mode"`
}

// AuthConfig holds the instance's authentication configuration. Attribute
// fields such as FirstName carry requirement levels ("on", "off", "required")
// rather than values.
type AuthConfig struct {
	Object                      string     `json:"object,omitempty"`
	ID                          string     `json:"id,omitempty"`
	FirstName                   string     `json:"first_name,omitempty"`
	LastName                    string     `json:"last_name,omitempty"`
	EmailAddress                string     `json:"email_address,omitempty"`
	PhoneNumber                 string     `json:"phone_number,omitempty"`
	Username                    string     `json:"username,omitempty"`
	Password                    string     `json:"password,omitempty"`
	IdentificationRequirements  [][]string `json:"identification_requirements,omitempty"`
	IdentificationStrategies    []string   `json:"identification_strategies,omitempty"`
	FirstFactors                []string   `json:"first_factors,omitempty"`
	SecondFactors               []string   `json:"second_factors,omitempty"`
	EmailAddressVerification    []string   `json:"email_address_verification_strategies,omitempty"`
	SingleSessionMode           bool       `json:"single_session_mode"`
	EnhancedEmailDeliverability bool       `json:"enhanced_email_deliverability,omitempty"`
	TestMode                    bool       `json:"test_mode,omitempty"`
}

// DisplayConfig holds the instance's presentation settings. The instance
// environment type distinguishes development from production instances.
type DisplayConfig struct {
	Object                  string `json:"object,omitempty"`
	ID                      string `json:"id,omitempty"`
	InstanceEnvironmentType string `json:"instance_environment_type,omitempty"`
	ApplicationName         string `json:"application_name,omitempty"`
	Branded                 bool   `json:"branded,omitempty"`
	PreferredSignInStrategy string `json:"preferred_sign_in_strategy,omitempty"`
	LogoImageURL            string `json:"logo_image_url,omitempty"`
	FaviconImageURL         string `json:"favicon_image_url,omitempty"`
	HomeURL                 string `json:"home_url,omitempty"`
	SignInURL               string `json:"sign_in_url,omitempty"`
	SignUpURL               string `json:"sign_up_url,omitempty"`
	UserProfileURL          string `json:"user_profile_url,omitempty"`
	AfterSignInURL          string `json:"after_sign_in_url,omitempty"`
	AfterSignOutAllURL      string `json:"after_sign_out_all_url,omitempty"`
	AfterSignOutOneURL      string `json:"after_sign_out_one_url,omitempty"`
	AfterSignUpURL          string `json:"after_sign_up_url,omitempty"`
	CaptchaPublicKey        string `json:"captcha_public_key,omitempty"`
	SupportEmail            string `json:"support_email,omitempty"`
}

// OrganizationSettings holds the instance's organization feature flags.
type OrganizationSettings struct {
	Enabled               bool            `json:"enabled"`
	MaxAllowedMemberships int64           `json:"max_allowed_memberships,omitempty"`
	CreatorRole           string          `json:"creator_role,omitempty"`
	Domains               json.RawMessage `json:"domains,omitempty"`
}

// IsDevelopment reports whether the instance runs in a development
// environment.
func (e *Environment) IsDevelopment() bool {
	return e.DisplayConfig.InstanceEnvironmentType == "development"
}
