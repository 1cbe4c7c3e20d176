package api

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Organization is a shared workspace users belong to through memberships.
type Organization struct {
	Object                  string          `json:"object,omitempty"`
	ID                      string          `json:"id"`
	Name                    string          `json:"name"`
	Slug                    string          `json:"slug,omitempty"`
	ImageURL                string          `json:"image_url,omitempty"`
	HasImage                bool            `json:"has_image,omitempty"`
	MembersCount            int64           `json:"members_count,omitempty"`
	PendingInvitationsCount int64           `json:"pending_invitations_count,omitempty"`
	MaxAllowedMemberships   int64           `json:"max_allowed_memberships,omitempty"`
	AdminDeleteEnabled      bool            `json:"admin_delete_enabled,omitempty"`
	PublicMetadata          json.RawMessage `json:"public_metadata,omitempty"`
	CreatedAt               int64           `json:"created_at,omitempty"`
	UpdatedAt               int64           `json:"updated_at,omitempty"`
}

// OrganizationMembership ties a user to an organization with a role.
type OrganizationMembership struct {
	Object         string          `json:"object,omitempty"`
	ID             string          `json:"id"`
	Role           string          `json:"role,omitempty"`
	RoleName       string          `json:"role_name,omitempty"`
	Permissions    []string        `json:"permissions,omitempty"`
	PublicMetadata json.RawMessage `json:"public_metadata,omitempty"`
	Organization   Organization    `json:"organization"`
	CreatedAt      int64           `json:"created_at,omitempty"`
	UpdatedAt      int64           `json:"updated_at,omitempty"`
}

// MatchesIdentifier reports whether this membership's organization is the one
// named by identifier. Identifiers carrying the org_ prefix compare as IDs;
// anything else compares as a slug.
func (m *OrganizationMembership) MatchesIdentifier(identifier string) bool {
	if m == nil || identifier == "" {
		return false
	}
	if strings.HasPrefix(identifier, "org_") {
		return m.Organization.ID == identifier
	}
	return m.Organization.Slug == identifier
}

// OrganizationMembershipList is the payload returned by the organization
// membership endpoints. The wire shape depends on the paginated parameter:
// either an object with data and total_count, or a bare array. UnmarshalJSON
// accepts both.
type OrganizationMembershipList struct {
	Data       []OrganizationMembership `json:"data"`
	TotalCount int64                    `json:"total_count"`
}

func (l *OrganizationMembershipList) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var memberships []OrganizationMembership
		if err := json.Unmarshal(trimmed, &memberships); err != nil {
			return err
		}
		l.Data = memberships
		l.TotalCount = int64(len(memberships))
		return nil
	}
	type alias OrganizationMembershipList
	var out alias
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	*l = OrganizationMembershipList(out)
	return nil
}
