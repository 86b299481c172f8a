package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CodeContinue is the envelope code the mediator uses for "no decisive outcome yet".
// The same value reports an unknown session on the add route.
const CodeContinue = 418

const maxResponseBytes = 4 << 20

// Envelope is the mediator response wrapper.
type Envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Continue reports whether the envelope is the keep-polling sentinel.
func (e *Envelope) Continue() bool {
	return e != nil && !e.Success && e.Code == CodeContinue
}

// Message extracts a server-provided message from data.message or
// data.data.message, when present.
func (e *Envelope) Message() string {
	if e == nil || len(e.Data) == 0 {
		return ""
	}
	var outer struct {
		Message string `json:"message"`
		Data    struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(e.Data, &outer); err != nil {
		return ""
	}
	if outer.Data.Message != "" {
		return outer.Data.Message
	}
	return outer.Message
}

// Transport posts a JSON body to a mediator route.
type Transport interface {
	Post(ctx context.Context, route string, body any) (*Envelope, error)
}

// Signer produces a bearer assertion for an outgoing request.
type Signer interface {
	Sign(route string, body []byte) (string, error)
}

// HTTP is the net/http Transport implementation.
type HTTP struct {
	Base      string
	HTTP      *http.Client
	Signer    Signer
	UserAgent string
}

// NewHTTP returns an HTTP transport for base with a client bounded by requestTimeout.
func NewHTTP(base string, requestTimeout time.Duration) *HTTP {
	return &HTTP{
		Base: strings.TrimRight(base, "/"),
		HTTP: &http.Client{Timeout: requestTimeout},
	}
}

// Post encodes body, posts it to Base+route and decodes the envelope.
//
// Non-2xx statuses are accepted when the body still decodes as an envelope, so a
// mediator answering 418 at the HTTP layer is classified the same as one answering 200.
func (c *HTTP) Post(ctx context.Context, route string, body any) (*Envelope, error) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return nil, err
	}
	payload := buf.Bytes()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+route, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Signer != nil {
		token, err := c.Signer.Sign(route, payload)
		if err != nil {
			return nil, fmt.Errorf("sign request %s: %w", route, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode/100 != 2 {
		if decodeErr == nil && env.Code != 0 {
			return &env, nil
		}
		return nil, fmt.Errorf("mediator post %s: %s", route, resp.Status)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("mediator post %s: decode envelope: %w", route, decodeErr)
	}
	return &env, nil
}

// IsCanceled reports whether err stems from context cancellation rather than a
// transport failure.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

var _ Transport = (*HTTP)(nil)
