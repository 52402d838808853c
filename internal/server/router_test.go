package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/tripweave/tripweave/backend/internal/auth"
	"github.com/tripweave/tripweave/backend/internal/comments"
	"github.com/tripweave/tripweave/backend/internal/identifier"
	"github.com/tripweave/tripweave/backend/internal/itinerary"
	"github.com/tripweave/tripweave/backend/internal/surveys"
	"github.com/tripweave/tripweave/backend/internal/trips"
	"github.com/tripweave/tripweave/backend/internal/users"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access raw database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	err = db.AutoMigrate(
		&users.Account{},
		&trips.Trip{},
		&trips.Membership{},
		&itinerary.Item{},
		&itinerary.VoteRecord{},
		&comments.Comment{},
		&surveys.Survey{},
		&surveys.Response{},
	)
	if err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	db := openTestDatabase(t)
	idProvider := identifier.NewUUIDProvider()

	usersService, err := users.NewService(users.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to construct users service: %v", err)
	}
	tripsService, err := trips.NewService(trips.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to construct trips service: %v", err)
	}
	itineraryService, err := itinerary.NewService(itinerary.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to construct itinerary service: %v", err)
	}
	commentsService, err := comments.NewService(comments.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to construct comments service: %v", err)
	}
	surveysService, err := surveys.NewService(surveys.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to construct surveys service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		TokenManager: auth.NewTokenIssuer(auth.TokenIssuerConfig{
			SigningSecret: []byte("router-test-secret"),
			Issuer:        "tripweave-test",
			Audience:      "tripweave-clients",
		}),
		UsersService:     usersService,
		TripsService:     tripsService,
		ItineraryService: itineraryService,
		CommentsService:  commentsService,
		SurveysService:   surveysService,
	})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}
	return handler
}

func performJSON(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func registerUser(t *testing.T, handler http.Handler, email string) (token, userID string) {
	t.Helper()
	recorder := performJSON(t, handler, http.MethodPost, "/auth/register", "", gin.H{
		"email":        email,
		"display_name": "Test Member",
		"password":     "long enough password",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("register failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var response struct {
		AccessToken string `json:"access_token"`
		UserID      string `json:"user_id"`
	}
	decodeBody(t, recorder, &response)
	return response.AccessToken, response.UserID
}

func createTrip(t *testing.T, handler http.Handler, token string, durationDays int) string {
	t.Helper()
	recorder := performJSON(t, handler, http.MethodPost, "/trips", token, gin.H{
		"name":          "Lisbon getaway",
		"destination":   "Lisbon",
		"duration_days": durationDays,
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create trip failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var trip struct {
		TripID string `json:"TripID"`
	}
	decodeBody(t, recorder, &trip)
	if trip.TripID == "" {
		t.Fatalf("expected a trip id in %s", recorder.Body.String())
	}
	return trip.TripID
}

func TestRoutesRejectMissingToken(t *testing.T) {
	handler := newTestHandler(t)

	recorder := performJSON(t, handler, http.MethodGet, "/trips", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", recorder.Code)
	}

	recorder = performJSON(t, handler, http.MethodGet, "/trips", "not-a-jwt", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a garbage token, got %d", recorder.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	handler := newTestHandler(t)
	registerUser(t, handler, "ana@example.com")

	recorder := performJSON(t, handler, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "ana@example.com",
		"password": "wrong password",
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestTripScopedRoutesRequireMembership(t *testing.T) {
	handler := newTestHandler(t)
	ownerToken, _ := registerUser(t, handler, "owner@example.com")
	outsiderToken, _ := registerUser(t, handler, "outsider@example.com")
	tripID := createTrip(t, handler, ownerToken, 3)

	recorder := performJSON(t, handler, http.MethodGet, "/trips/"+tripID+"/itinerary", outsiderToken, nil)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = performJSON(t, handler, http.MethodGet, "/trips/"+tripID+"/itinerary", ownerToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected member access, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestItineraryEndpointGroupsItemsByDay(t *testing.T) {
	handler := newTestHandler(t)
	token, _ := registerUser(t, handler, "owner@example.com")
	tripID := createTrip(t, handler, token, 3)

	day := 2
	recorder := performJSON(t, handler, http.MethodPost, "/trips/"+tripID+"/itinerary", token, gin.H{
		"title":      "Tram 28 ride",
		"type":       "activity",
		"day_number": day,
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create item failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	recorder = performJSON(t, handler, http.MethodPost, "/trips/"+tripID+"/itinerary", token, gin.H{
		"title": "Pack snacks",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create item failed with %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = performJSON(t, handler, http.MethodGet, "/trips/"+tripID+"/itinerary", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("get itinerary failed with %d: %s", recorder.Code, recorder.Body.String())
	}

	var response itineraryResponsePayload
	decodeBody(t, recorder, &response)
	if response.DurationDays != 3 || len(response.Days) != 3 {
		t.Fatalf("expected one group per trip day, got %+v", response)
	}
	if len(response.Days[0].Items) != 0 || len(response.Days[1].Items) != 1 || len(response.Days[2].Items) != 0 {
		t.Fatalf("expected the scheduled item on day 2 only, got %+v", response.Days)
	}
	if len(response.Unscheduled) != 1 || response.Unscheduled[0].Title != "Pack snacks" {
		t.Fatalf("expected the dayless item in unscheduled, got %+v", response.Unscheduled)
	}
}

func TestVoteEndpointAppliesTransitionTable(t *testing.T) {
	handler := newTestHandler(t)
	token, _ := registerUser(t, handler, "owner@example.com")
	tripID := createTrip(t, handler, token, 2)

	recorder := performJSON(t, handler, http.MethodPost, "/trips/"+tripID+"/itinerary", token, gin.H{
		"title": "Fado night",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create item failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var created itemViewPayload
	decodeBody(t, recorder, &created)

	votePath := "/trips/" + tripID + "/itinerary/" + created.ItemID + "/vote"
	var result struct {
		Votes    int    `json:"votes"`
		UserVote string `json:"user_vote"`
	}

	recorder = performJSON(t, handler, http.MethodPost, votePath, token, gin.H{"direction": "up"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("vote failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	decodeBody(t, recorder, &result)
	if result.Votes != 1 || result.UserVote != "up" {
		t.Fatalf("expected (1, up) after first upvote, got %+v", result)
	}

	recorder = performJSON(t, handler, http.MethodPost, votePath, token, gin.H{"direction": "down"})
	decodeBody(t, recorder, &result)
	if result.Votes != -1 || result.UserVote != "down" {
		t.Fatalf("expected (-1, down) after flip, got %+v", result)
	}

	recorder = performJSON(t, handler, http.MethodPost, votePath, token, gin.H{"direction": "down"})
	decodeBody(t, recorder, &result)
	if result.Votes != 0 || result.UserVote != "" {
		t.Fatalf("expected (0, none) after toggle off, got %+v", result)
	}

	recorder = performJSON(t, handler, http.MethodPost, votePath, token, gin.H{"direction": "sideways"})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid direction, got %d", recorder.Code)
	}
}

func TestVoteEndpointRejectsUnknownItem(t *testing.T) {
	handler := newTestHandler(t)
	token, _ := registerUser(t, handler, "owner@example.com")
	tripID := createTrip(t, handler, token, 2)

	recorder := performJSON(t, handler, http.MethodPost, "/trips/"+tripID+"/itinerary/missing/vote", token, gin.H{"direction": "up"})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown item, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestCommentsEndpointRoundTrip(t *testing.T) {
	handler := newTestHandler(t)
	token, _ := registerUser(t, handler, "owner@example.com")
	tripID := createTrip(t, handler, token, 2)

	recorder := performJSON(t, handler, http.MethodPost, "/trips/"+tripID+"/itinerary", token, gin.H{
		"title": "Castle visit",
	})
	var created itemViewPayload
	decodeBody(t, recorder, &created)

	commentsPath := "/trips/" + tripID + "/itinerary/" + created.ItemID + "/comments"
	recorder = performJSON(t, handler, http.MethodPost, commentsPath, token, gin.H{"body": "Book tickets ahead"})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("add comment failed with %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = performJSON(t, handler, http.MethodGet, commentsPath, token, nil)
	var listing struct {
		Comments []comments.Comment `json:"comments"`
	}
	decodeBody(t, recorder, &listing)
	if len(listing.Comments) != 1 || listing.Comments[0].Body != "Book tickets ahead" {
		t.Fatalf("expected the stored comment back, got %+v", listing.Comments)
	}
}

func TestSurveyEndpointsRoundTrip(t *testing.T) {
	handler := newTestHandler(t)
	token, _ := registerUser(t, handler, "owner@example.com")
	tripID := createTrip(t, handler, token, 2)

	surveysPath := "/trips/" + tripID + "/surveys"
	recorder := performJSON(t, handler, http.MethodPost, surveysPath, token, gin.H{
		"question": "Which beach day?",
		"options":  []string{"Saturday", "Sunday"},
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create survey failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var created struct {
		SurveyID string `json:"SurveyID"`
	}
	decodeBody(t, recorder, &created)

	option := 1
	recorder = performJSON(t, handler, http.MethodPost, surveysPath+"/"+created.SurveyID+"/responses", token, gin.H{
		"option_index": option,
	})
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("submit response failed with %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = performJSON(t, handler, http.MethodGet, surveysPath, token, nil)
	var listing struct {
		Surveys []surveys.SurveyView `json:"surveys"`
	}
	decodeBody(t, recorder, &listing)
	if len(listing.Surveys) != 1 {
		t.Fatalf("expected one survey, got %+v", listing.Surveys)
	}
	if listing.Surveys[0].Counts[0] != 0 || listing.Surveys[0].Counts[1] != 1 {
		t.Fatalf("expected counts [0 1], got %v", listing.Surveys[0].Counts)
	}

	recorder = performJSON(t, handler, http.MethodPost, surveysPath+"/"+created.SurveyID+"/close", token, nil)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("close survey failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	recorder = performJSON(t, handler, http.MethodPost, surveysPath+"/"+created.SurveyID+"/responses", token, gin.H{
		"option_index": 0,
	})
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409 after close, got %d: %s", recorder.Code, recorder.Body.String())
	}
}
