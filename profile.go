package tidepool

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aiwanyun/TidepoolKit/internal/api"
)

// Profile is the user's metadata profile.
type Profile struct {
	FullName string          `json:"fullName,omitempty"`
	Patient  *PatientProfile `json:"patient,omitempty"`
}

// PatientProfile carries patient-specific profile fields.
type PatientProfile struct {
	Birthday      string   `json:"birthday,omitempty"`
	DiagnosisDate string   `json:"diagnosisDate,omitempty"`
	TargetDevices []string `json:"targetDevices,omitempty"`
}

// GetProfile retrieves the profile of the logged-in user.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	userID, err := c.currentUserID()
	if err != nil {
		return nil, err
	}

	var profile Profile
	_, err = c.do(ctx, api.Request{
		Method:        http.MethodGet,
		Path:          fmt.Sprintf("/metadata/%s/profile", url.PathEscape(userID)),
		Authenticated: true,
		Expect:        api.Expect{JSON: true},
	}, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile replaces the profile of the logged-in user and returns the
// stored result.
func (c *Client) UpdateProfile(ctx context.Context, profile *Profile) (*Profile, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: profile is required", ErrRequestInvalid)
	}
	userID, err := c.currentUserID()
	if err != nil {
		return nil, err
	}

	var stored Profile
	_, err = c.do(ctx, api.Request{
		Method:        http.MethodPut,
		Path:          fmt.Sprintf("/metadata/%s/profile", url.PathEscape(userID)),
		Body:          profile,
		Authenticated: true,
		Expect:        api.Expect{JSON: true},
	}, &stored)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
