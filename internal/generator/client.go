// Package generator talks to the external AI content service. The
// service is an opaque text-to-structured-data function; everything it
// returns crosses a strict schema check here and is never trusted past
// it. Validation is all-or-nothing: one malformed item rejects the
// whole response.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrBadResponse wraps every upstream format failure so callers can
// collapse the taxonomy to a single "could not generate content" error.
var ErrBadResponse = errors.New("generator: malformed upstream response")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type Request struct {
	DocumentText string `json:"documentText"`
	Subject      string `json:"subject"`
	Count        int    `json:"count"`
}

type Question struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

func (c *Client) GenerateQuestions(ctx context.Context, req Request) ([]Question, error) {
	var out struct {
		Questions []Question `json:"questions"`
	}
	if err := c.post(ctx, "/questions", req, &out); err != nil {
		return nil, err
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("%w: empty question list", ErrBadResponse)
	}
	for i, q := range out.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("%w: question %d has no text", ErrBadResponse, i)
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: question %d has %d options", ErrBadResponse, i, len(q.Options))
		}
		if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d answer index out of range", ErrBadResponse, i)
		}
	}
	return out.Questions, nil
}

func (c *Client) GenerateFlashcards(ctx context.Context, req Request) ([]Flashcard, error) {
	var out struct {
		Flashcards []Flashcard `json:"flashcards"`
	}
	if err := c.post(ctx, "/flashcards", req, &out); err != nil {
		return nil, err
	}
	if len(out.Flashcards) == 0 {
		return nil, fmt.Errorf("%w: empty flashcard list", ErrBadResponse)
	}
	for i, card := range out.Flashcards {
		if strings.TrimSpace(card.Front) == "" || strings.TrimSpace(card.Back) == "" {
			return nil, fmt.Errorf("%w: flashcard %d has an empty side", ErrBadResponse, i)
		}
	}
	return out.Flashcards, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal generator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build generator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: upstream status %d", ErrBadResponse, resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}
