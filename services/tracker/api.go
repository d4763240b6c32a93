package tracker

import (
	"context"

	"mhrs-tracker/lib/mhrs"
)

// API is the part of the MHRS client the polling engine needs,
// *mhrs.Client implements it.
type API interface {
	Login(ctx context.Context, identity, secret string) (string, error)
	SearchSlots(ctx context.Context, token string, req mhrs.SearchRequest) (mhrs.SearchResult, error)
	Reserve(ctx context.Context, token string, req mhrs.ReserveRequest) (mhrs.ReserveResult, error)
}

var _ API = (*mhrs.Client)(nil)
