package commander

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrMatchOver is returned by Act when the server refuses commands because
// the match already has a result.
var ErrMatchOver = errors.New("match is over")

// ThrottledError is returned by Act when the command endpoint answers 429.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("command throttled, retry after %s", e.RetryAfter)
}

// Ack is the server's reply to a queued command.
type Ack struct {
	Queued string `json:"queued"`
	Tick   uint64 `json:"tick"`
}

// Actor posts commands for the human faction.
type Actor struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// NewActor creates an Actor that authenticates with adminKey.
func NewActor(baseURL, adminKey string) *Actor {
	return &Actor{
		BaseURL:    baseURL,
		AdminKey:   adminKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Act queues cmd for the next tick. A finished match yields ErrMatchOver and
// an exhausted command budget a *ThrottledError; other refusals carry the
// server's message.
func (a *Actor) Act(cmd *Command) (*Ack, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s command: %w", cmd.Kind, err)
	}
	req, err := http.NewRequest(http.MethodPost, a.BaseURL+"/api/v1/command", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s command: %w", cmd.Kind, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.AdminKey)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send %s command: %w", cmd.Kind, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var ack Ack
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			return nil, fmt.Errorf("decode ack: %w", err)
		}
		return &ack, nil
	case http.StatusConflict:
		return nil, ErrMatchOver
	case http.StatusTooManyRequests:
		wait := time.Second
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
		return nil, &ThrottledError{RetryAfter: wait}
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s command refused (%d): %s", cmd.Kind, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}
