package lookup

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mhrs-tracker/lib/mhrs"
	"mhrs-tracker/lib/textutil"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("mhrs-tracker/services/lookup")

const AnyText = "Any"

type Source interface {
	Districts(ctx context.Context, token string, regionId int64) ([]mhrs.Option, error)
	Clinics(ctx context.Context, token string, regionId, districtId int64) ([]mhrs.Option, error)
	Institutions(ctx context.Context, token string, regionId, districtId, clinicId int64) ([]mhrs.Option, error)
	Physicians(ctx context.Context, token string, institutionId, clinicId int64) ([]mhrs.Option, error)
}

var _ Source = (*mhrs.Client)(nil)

// Service caches lookup lists, they do not depend on the token used to
// fetch them so one cache serves every subscriber.
type Service struct {
	source Source
	cache  *expirable.LRU[string, []mhrs.Option]
}

func NewService(source Source, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return Service{
		source: source,
		cache:  expirable.NewLRU[string, []mhrs.Option](512, nil, ttl),
	}
}

func (s Service) get(ctx context.Context, key string, fetch func(ctx context.Context) ([]mhrs.Option, error)) ([]mhrs.Option, error) {
	ctx, span := tracer.Start(ctx, "Service:get")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	cached, hit := s.cache.Get(key)
	span.SetAttributes(attribute.Bool("hit", hit))
	if hit {
		return cached, nil
	}

	options, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, options)
	return options, nil
}

func (s Service) Districts(ctx context.Context, token string, regionId int64) ([]mhrs.Option, error) {
	return s.get(ctx, fmt.Sprintf("districts:%d", regionId), func(ctx context.Context) ([]mhrs.Option, error) {
		return s.source.Districts(ctx, token, regionId)
	})
}

func (s Service) Clinics(ctx context.Context, token string, regionId, districtId int64) ([]mhrs.Option, error) {
	return s.get(ctx, fmt.Sprintf("clinics:%d:%d", regionId, districtId), func(ctx context.Context) ([]mhrs.Option, error) {
		return s.source.Clinics(ctx, token, regionId, districtId)
	})
}

// Institutions starts with an "Any" option of id mhrs.AnyId.
func (s Service) Institutions(ctx context.Context, token string, regionId, districtId, clinicId int64) ([]mhrs.Option, error) {
	options, err := s.get(ctx, fmt.Sprintf("institutions:%d:%d:%d", regionId, districtId, clinicId), func(ctx context.Context) ([]mhrs.Option, error) {
		return s.source.Institutions(ctx, token, regionId, districtId, clinicId)
	})
	return withAny(options), err
}

// Physicians starts with an "Any" option of id mhrs.AnyId. An institution
// of mhrs.AnyId lists the clinic's physicians across every institution.
func (s Service) Physicians(ctx context.Context, token string, institutionId, clinicId int64) ([]mhrs.Option, error) {
	options, err := s.get(ctx, fmt.Sprintf("physicians:%d:%d", institutionId, clinicId), func(ctx context.Context) ([]mhrs.Option, error) {
		return s.source.Physicians(ctx, token, institutionId, clinicId)
	})
	return withAny(options), err
}

func withAny(options []mhrs.Option) []mhrs.Option {
	out := make([]mhrs.Option, 0, len(options)+1)
	out = append(out, mhrs.Option{Value: mhrs.AnyId, Text: AnyText})
	for _, o := range options {
		if o.Value != mhrs.AnyId {
			out = append(out, o)
		}
	}
	return out
}

// Resolve picks the option a user meant: an exact id, a 1-based position
// in the list prefixed with '#', or the best fuzzy match of a name.
func Resolve(options []mhrs.Option, input string) (mhrs.Option, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return mhrs.Option{}, false
	}

	if pos, ok := strings.CutPrefix(input, "#"); ok {
		n, err := strconv.Atoi(pos)
		if err == nil && n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return mhrs.Option{}, false
	}
	if id, err := strconv.ParseInt(input, 10, 64); err == nil {
		for _, o := range options {
			if o.Value == id {
				return o, true
			}
		}
		return mhrs.Option{}, false
	}

	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.Text
	}
	idx := textutil.BestMatch(input, names)
	if idx < 0 {
		return mhrs.Option{}, false
	}
	return options[idx], true
}
