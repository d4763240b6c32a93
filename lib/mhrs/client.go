package mhrs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"mhrs-tracker/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("mhrs-tracker/lib/mhrs")

const (
	DefaultBaseUrl   = "https://prd.mhrs.gov.tr"
	DefaultUserAgent = "Mozilla/5.0"

	loginTimeout   = 20 * time.Second
	searchTimeout  = 25 * time.Second
	reserveTimeout = 20 * time.Second
	lookupTimeout  = 25 * time.Second

	defaultRequestsPerSecond = 2
)

var instrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput sets where request/response dumps of clients
// created afterwards are written while debug logging is enabled.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	instrumentOutput = out
}

type ClientOptions struct {
	BaseUrl   string
	UserAgent string
	// shared by every caller of the client, <= 0 means the default of 2
	RequestsPerSecond float64
	// wraps the transport with headers that get past Cloudflare's
	// browser check
	BypassCloudflare bool
	// overrides the http transport, used by tests
	Transport http.RoundTripper
}

// Client talks to the MHRS citizen API. It is safe for concurrent use, all
// trackers of a process share one client (and one rate limit).
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRequestsPerSecond
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept", "application/json")

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	if opts.BypassCloudflare {
		transport = cloudflarebp.AddCloudFlareByPass(transport)
	}
	client.SetTransport(transport)

	limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
	restyutil.InstrumentClient(client, tracer, instrumentOutput)

	return &Client{
		http:    client,
		limiter: limiter,
	}, nil
}

type call struct {
	name    string
	method  string
	path    string
	token   string
	body    any
	timeout time.Duration
}

// do performs the call and returns the raw body of a 200 response, any
// other status is returned as a *StatusError.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	ctx, span := tracer.Start(ctx, cl.name)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, cl.timeout)
	defer cancel()

	req := c.http.R().SetContext(ctx)
	if cl.token != "" {
		req.SetAuthToken(cl.token)
	}
	if cl.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
	}

	res, err := req.Execute(cl.method, cl.path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("mhrs %s: %w", cl.name, err)
	}
	span.SetAttributes(attribute.Int("status", res.StatusCode()))

	if res.StatusCode() != http.StatusOK {
		statusErr := newStatusError(cl.name, res.StatusCode(), res.Body())
		span.SetStatus(codes.Error, statusErr.Error())
		return nil, statusErr
	}
	return res.Body(), nil
}

func decode[T any](endpoint string, body []byte) (T, error) {
	var out T
	err := json.Unmarshal(body, &out)
	if err != nil {
		return out, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, endpoint, err)
	}
	return out, nil
}
