package mhrs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Reserve books a slot. A 200 whose body cannot be decoded is returned as
// a zero ReserveResult (Success == nil), the server has accepted the
// reservation in that case.
func (c *Client) Reserve(ctx context.Context, token string, req ReserveRequest) (ReserveResult, error) {
	body, err := c.do(ctx, call{
		name:    "Reserve",
		method:  http.MethodPost,
		path:    "/api/kurum/randevu/randevu-ekle",
		token:   token,
		body:    req,
		timeout: reserveTimeout,
	})
	if err != nil {
		return ReserveResult{}, err
	}

	var res ReserveResult
	err = json.Unmarshal(body, &res)
	if err != nil {
		slog.WarnContext(ctx, "could not decode reservation response", "slot", req.SlotId, "err", err)
		return ReserveResult{}, nil
	}
	return res, nil
}
