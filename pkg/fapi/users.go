package fapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
)

// GetUser fetches the user that owns the current session.
func (c *Client) GetUser(ctx context.Context) (*api.User, error) {
	var user api.User
	if err := c.doEnveloped(ctx, "get_user", http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserUpdateParams patches profile fields on the current user. Empty fields
// are left untouched.
type UserUpdateParams struct {
	FirstName             string
	LastName              string
	Username              string
	PrimaryEmailAddressID string
	PrimaryPhoneNumberID  string
	UnsafeMetadata        string
}

func (p UserUpdateParams) form() url.Values {
	form := url.Values{}
	setNonEmpty(form, "first_name", p.FirstName)
	setNonEmpty(form, "last_name", p.LastName)
	setNonEmpty(form, "username", p.Username)
	setNonEmpty(form, "primary_email_address_id", p.PrimaryEmailAddressID)
	setNonEmpty(form, "primary_phone_number_id", p.PrimaryPhoneNumberID)
	setNonEmpty(form, "unsafe_metadata", p.UnsafeMetadata)
	return form
}

// UpdateUser patches the current user's profile.
func (c *Client) UpdateUser(ctx context.Context, params UserUpdateParams) (*api.User, error) {
	var user api.User
	if err := c.doEnveloped(ctx, "update_user", http.MethodPatch, "/me", params.form(), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// MembershipListParams pages through the current user's organization
// memberships. Zero values fall back to the API defaults.
type MembershipListParams struct {
	Limit  int
	Offset int
}

// GetOrganizationMemberships lists the organizations the current user belongs
// to. The Frontend API serves both paginated and bare-array forms; the list
// type absorbs either.
func (c *Client) GetOrganizationMemberships(ctx context.Context, params MembershipListParams) (*api.OrganizationMembershipList, error) {
	query := url.Values{}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		query.Set("offset", strconv.Itoa(params.Offset))
	}
	query.Set("paginated", "true")

	var memberships api.OrganizationMembershipList
	path := "/me/organization_memberships?" + query.Encode()
	if err := c.doEnveloped(ctx, "get_organization_memberships", http.MethodGet, path, nil, &memberships); err != nil {
		return nil, err
	}
	return &memberships, nil
}
