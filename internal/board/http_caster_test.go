package board

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tripweave/tripweave/backend/internal/itinerary"
)

func TestHTTPCasterPostsClickedDirection(t *testing.T) {
	var gotPath, gotAuthorization, gotDirection string
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuthorization = r.Header.Get("Authorization")
		var payload struct {
			Direction string `json:"direction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		gotDirection = payload.Direction
		w.WriteHeader(http.StatusOK)
	}))
	defer testServer.Close()

	caster := &HTTPCaster{BaseURL: testServer.URL + "/", AccessToken: "token-123"}
	if err := caster.CastVote(context.Background(), "trip-1", "item-1", itinerary.DirectionDown); err != nil {
		t.Fatalf("unexpected cast error: %v", err)
	}

	if gotPath != "/trips/trip-1/itinerary/item-1/vote" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuthorization != "Bearer token-123" {
		t.Fatalf("unexpected authorization header %q", gotAuthorization)
	}
	if gotDirection != "down" {
		t.Fatalf("unexpected direction %q", gotDirection)
	}
}

func TestHTTPCasterDecodesServerErrorMessage(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "voting is closed"})
	}))
	defer testServer.Close()

	caster := &HTTPCaster{BaseURL: testServer.URL}
	err := caster.CastVote(context.Background(), "trip-1", "item-1", itinerary.DirectionUp)

	var castErr *CastError
	if !errors.As(err, &castErr) {
		t.Fatalf("expected *CastError, got %v", err)
	}
	if castErr.ServerMessage != "voting is closed" {
		t.Fatalf("unexpected server message %q", castErr.ServerMessage)
	}
}

func TestHTTPCasterWrapsTransportFailure(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	testServer.Close()

	caster := &HTTPCaster{BaseURL: testServer.URL}
	err := caster.CastVote(context.Background(), "trip-1", "item-1", itinerary.DirectionUp)

	var castErr *CastError
	if !errors.As(err, &castErr) {
		t.Fatalf("expected *CastError, got %v", err)
	}
	if castErr.ServerMessage != "" {
		t.Fatalf("expected no server message on transport failure, got %q", castErr.ServerMessage)
	}
}
