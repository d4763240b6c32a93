package mhrs

import (
	"context"
	"fmt"
	"net/http"
)

type optionsEnvelope struct {
	Data []Option `json:"data"`
}

func (c *Client) lookup(ctx context.Context, name, path, token string, enveloped bool) ([]Option, error) {
	body, err := c.do(ctx, call{
		name:    name,
		method:  http.MethodGet,
		path:    path,
		token:   token,
		timeout: lookupTimeout,
	})
	if err != nil {
		return nil, err
	}
	if !enveloped {
		return decode[[]Option](name, body)
	}
	res, err := decode[optionsEnvelope](name, body)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Districts lists the districts (ilçe) of a region (il), regions are
// identified by their license plate code.
func (c *Client) Districts(ctx context.Context, token string, regionId int64) ([]Option, error) {
	return c.lookup(
		ctx, "Districts",
		fmt.Sprintf("/api/yonetim/genel/ilce/selectinput/%d", regionId),
		token, false,
	)
}

// Clinics lists the clinics that accept appointments in a district.
func (c *Client) Clinics(ctx context.Context, token string, regionId, districtId int64) ([]Option, error) {
	return c.lookup(
		ctx, "Clinics",
		fmt.Sprintf(
			"/api/kurum/kurum/kurum-klinik/il/%d/ilce/%d/kurum/-1/aksiyon/200/select-input",
			regionId, districtId,
		),
		token, true,
	)
}

// Institutions lists the hospitals of a district that have the clinic.
func (c *Client) Institutions(ctx context.Context, token string, regionId, districtId, clinicId int64) ([]Option, error) {
	return c.lookup(
		ctx, "Institutions",
		fmt.Sprintf(
			"/api/kurum/kurum/kurum-klinik/il/%d/ilce/%d/kurum/-1/klinik/%d/ana-kurum/select-input",
			regionId, districtId, clinicId,
		),
		token, true,
	)
}

// Physicians lists the physicians working in a clinic of an institution.
func (c *Client) Physicians(ctx context.Context, token string, institutionId, clinicId int64) ([]Option, error) {
	return c.lookup(
		ctx, "Physicians",
		fmt.Sprintf(
			"/api/kurum/hekim/hekim-klinik/hekim-select-input/anakurum/%d/kurum/-1/klinik/%d",
			institutionId, clinicId,
		),
		token, true,
	)
}
