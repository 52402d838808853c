package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tripweave/tripweave/backend/internal/itinerary"
)

// HTTPCaster persists votes against the TripWeave REST API.
type HTTPCaster struct {
	BaseURL     string
	AccessToken string
	Client      *http.Client
}

type castVotePayload struct {
	Direction string `json:"direction"`
}

type errorBodyPayload struct {
	Error string `json:"error"`
}

// CastVote posts the clicked direction to the vote endpoint. Non-2xx
// responses and transport errors both come back as a *CastError so the board
// can surface the server's message when one is present.
func (h *HTTPCaster) CastVote(ctx context.Context, tripID, itemID string, direction itinerary.Direction) error {
	body, err := json.Marshal(castVotePayload{Direction: string(direction)})
	if err != nil {
		return &CastError{Err: err}
	}

	endpoint := fmt.Sprintf("%s/trips/%s/itinerary/%s/vote", strings.TrimRight(h.BaseURL, "/"), tripID, itemID)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &CastError{Err: err}
	}
	request.Header.Set("Content-Type", "application/json")
	if h.AccessToken != "" {
		request.Header.Set("Authorization", "Bearer "+h.AccessToken)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	response, err := client.Do(request)
	if err != nil {
		return &CastError{Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}

	var parsed errorBodyPayload
	_ = json.NewDecoder(response.Body).Decode(&parsed)
	return &CastError{
		ServerMessage: parsed.Error,
		Err:           fmt.Errorf("vote endpoint returned status %d", response.StatusCode),
	}
}
