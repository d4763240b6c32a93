package mhrs

import (
	"context"
	"net/http"
)

// SearchSlots asks for the availability tree matching req. A 200 with a
// body that is not the expected shape returns ErrMalformedResponse.
func (c *Client) SearchSlots(ctx context.Context, token string, req SearchRequest) (SearchResult, error) {
	body, err := c.do(ctx, call{
		name:    "SearchSlots",
		method:  http.MethodPost,
		path:    "/api/kurum-rss/randevu/slot-sorgulama/slot",
		token:   token,
		body:    req,
		timeout: searchTimeout,
	})
	if err != nil {
		return SearchResult{}, err
	}
	return decode[SearchResult]("SearchSlots", body)
}
