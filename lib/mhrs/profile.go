package mhrs

import (
	"context"
	"fmt"
	"net/http"
)

type profileResponse struct {
	Success *bool   `json:"success"`
	Data    Patient `json:"data"`
}

// Profile returns the name of the patient the token belongs to.
func (c *Client) Profile(ctx context.Context, token string) (Patient, error) {
	body, err := c.do(ctx, call{
		name:    "Profile",
		method:  http.MethodGet,
		path:    "/api/vatandas/vatandas/hasta-bilgisi",
		token:   token,
		timeout: lookupTimeout,
	})
	if err != nil {
		return Patient{}, err
	}
	res, err := decode[profileResponse]("Profile", body)
	if err != nil {
		return Patient{}, err
	}
	if res.Success != nil && !*res.Success {
		return Patient{}, fmt.Errorf("%w: profile request was not successful", ErrMalformedResponse)
	}
	return res.Data, nil
}
