package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mhrs-tracker/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("mhrs-tracker/lib/telegram")

const DefaultBaseUrl = "https://api.telegram.org"

// Telegram caps a message at 4096 characters.
const maxMessageLength = 4096

var ErrNoToken = errors.New("telegram bot token is empty")

// APIError is a response with "ok": false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

type envelope struct {
	Ok          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type Chat struct {
	Id int64 `json:"id"`
}

type User struct {
	Id        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Message struct {
	Id   int64  `json:"message_id"`
	Chat Chat   `json:"chat"`
	From *User  `json:"from"`
	Text string `json:"text"`
}

type Update struct {
	Id      int64    `json:"update_id"`
	Message *Message `json:"message"`
}

type ClientOptions struct {
	Token   string
	BaseUrl string
}

// Client is a minimal Bot API client, enough to send text and long poll
// for updates.
type Client struct {
	http *resty.Client
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Token == "" {
		return nil, ErrNoToken
	}
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}

	client := resty.New()
	client.SetBaseURL(fmt.Sprintf("%s/bot%s", opts.BaseUrl, opts.Token))
	client.SetHeader("Accept", "application/json")
	restyutil.InstrumentClient(client, tracer, nil)

	return &Client{http: client}, nil
}

func (c *Client) call(ctx context.Context, method string, body any, timeout time.Duration, out any) error {
	ctx, span := tracer.Start(ctx, "Client:"+method)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/" + method)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	span.SetAttributes(attribute.Int("status", res.StatusCode()))

	var env envelope
	err = json.Unmarshal(res.Body(), &env)
	if err != nil {
		span.SetStatus(codes.Error, "unreadable response")
		return fmt.Errorf("telegram %s: HTTP %d: %w", method, res.StatusCode(), err)
	}
	if !env.Ok || res.StatusCode() != http.StatusOK {
		apiErr := &APIError{Method: method, Code: env.ErrorCode, Description: env.Description}
		if apiErr.Code == 0 {
			apiErr.Code = res.StatusCode()
		}
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Result, out)
}

// SendMessage sends plain text to a chat, text longer than Telegram
// accepts is truncated.
func (c *Client) SendMessage(ctx context.Context, chatId string, text string) error {
	if runes := []rune(text); len(runes) > maxMessageLength {
		text = string(runes[:maxMessageLength-1]) + "…"
	}
	return c.call(ctx, "sendMessage", map[string]any{
		"chat_id":                  chatId,
		"text":                     text,
		"disable_web_page_preview": true,
	}, 20*time.Second, nil)
}

// GetUpdates long polls for new messages, waiting up to timeout for one
// to arrive. offset is one past the last update id already handled.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message"},
	}, timeout+10*time.Second, &updates)
	return updates, err
}

// ChatId formats a chat id the way SendMessage expects it.
func ChatId(id int64) string {
	return strconv.FormatInt(id, 10)
}
