package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tripweave/tripweave/backend/internal/comments"
	"github.com/tripweave/tripweave/backend/internal/itinerary"
	"github.com/tripweave/tripweave/backend/internal/surveys"
	"github.com/tripweave/tripweave/backend/internal/trips"
	"github.com/tripweave/tripweave/backend/internal/users"
	"go.uber.org/zap"
)

const userIDContextKey = "tripweave_user_id"

var (
	errMissingTokenManager     = errors.New("token manager dependency required")
	errMissingUsersService     = errors.New("users service dependency required")
	errMissingTripsService     = errors.New("trips service dependency required")
	errMissingItineraryService = errors.New("itinerary service dependency required")
	errMissingCommentsService  = errors.New("comments service dependency required")
	errMissingSurveysService   = errors.New("surveys service dependency required")
	errInvalidAuthorization    = errors.New("authorization header missing or invalid")
)

// BackendTokenManager issues and validates first-party access tokens.
type BackendTokenManager interface {
	IssueToken(ctx context.Context, userID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	TokenManager     BackendTokenManager
	UsersService     *users.Service
	TripsService     *trips.Service
	ItineraryService *itinerary.Service
	CommentsService  *comments.Service
	SurveysService   *surveys.Service
	Realtime         *ActivityDispatcher
	Logger           *zap.Logger
	AllowedOrigins   []string
}

// NewHTTPHandler builds the gin router with all routes registered.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.TripsService == nil {
		return nil, errMissingTripsService
	}
	if deps.ItineraryService == nil {
		return nil, errMissingItineraryService
	}
	if deps.CommentsService == nil {
		return nil, errMissingCommentsService
	}
	if deps.SurveysService == nil {
		return nil, errMissingSurveysService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewActivityDispatcher()
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:    deps.TokenManager,
		users:     deps.UsersService,
		trips:     deps.TripsService,
		itinerary: deps.ItineraryService,
		comments:  deps.CommentsService,
		surveys:   deps.SurveysService,
		realtime:  realtime,
		logger:    logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/trips", handler.handleCreateTrip)
	protected.GET("/trips", handler.handleListTrips)

	tripScoped := protected.Group("/trips/:tripID")
	tripScoped.Use(handler.requireMembership)
	tripScoped.GET("", handler.handleGetTrip)
	tripScoped.GET("/members", handler.handleListMembers)
	tripScoped.POST("/members", handler.handleAddMember)
	tripScoped.GET("/itinerary", handler.handleGetItinerary)
	tripScoped.POST("/itinerary", handler.handleCreateItem)
	tripScoped.POST("/itinerary/:itemID/reorder", handler.handleReorderItem)
	tripScoped.PATCH("/itinerary/:itemID", handler.handleUpdateItem)
	tripScoped.DELETE("/itinerary/:itemID", handler.handleDeleteItem)
	tripScoped.POST("/itinerary/:itemID/vote", handler.handleCastVote)
	tripScoped.GET("/itinerary/:itemID/comments", handler.handleListComments)
	tripScoped.POST("/itinerary/:itemID/comments", handler.handleAddComment)
	tripScoped.GET("/surveys", handler.handleListSurveys)
	tripScoped.POST("/surveys", handler.handleCreateSurvey)
	tripScoped.POST("/surveys/:surveyID/responses", handler.handleSubmitResponse)
	tripScoped.POST("/surveys/:surveyID/close", handler.handleCloseSurvey)
	tripScoped.GET("/events", handler.handleTripEvents)

	return router, nil
}

type httpHandler struct {
	tokens    BackendTokenManager
	users     *users.Service
	trips     *trips.Service
	itinerary *itinerary.Service
	comments  *comments.Service
	surveys   *surveys.Service
	realtime  *ActivityDispatcher
	logger    *zap.Logger
}

// authorizeRequest validates the Bearer token, falling back to the
// access_token query parameter for the EventSource endpoint, which cannot
// set headers.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token := ""
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if token == "" {
		token = strings.TrimSpace(c.Query("access_token"))
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

// requireMembership gates every trip-scoped route on trip membership.
func (h *httpHandler) requireMembership(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	tripID := c.Param("tripID")
	member, err := h.trips.IsMember(c.Request.Context(), tripID, userID)
	if err != nil {
		h.respondServiceError(c, err)
		c.Abort()
		return
	}
	if !member {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not_a_member"})
		return
	}
	c.Next()
}

// respondServiceError maps a service failure onto an HTTP status, keeping
// the stable operation.reason code in the body.
func (h *httpHandler) respondServiceError(c *gin.Context, err error) {
	code := ""
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		code = coded.Code()
	}

	status := http.StatusInternalServerError
	switch {
	case strings.HasSuffix(code, "_not_found"):
		status = http.StatusNotFound
	case strings.HasSuffix(code, "invalid_credentials"):
		status = http.StatusUnauthorized
	case strings.HasSuffix(code, "not_creator"):
		status = http.StatusForbidden
	case strings.HasSuffix(code, "email_taken"),
		strings.HasSuffix(code, "already_member"),
		strings.HasSuffix(code, "survey_closed"):
		status = http.StatusConflict
	case strings.Contains(code, ".missing_"),
		strings.Contains(code, ".invalid_"),
		strings.Contains(code, ".empty_"),
		strings.Contains(code, "password_too_short"),
		strings.Contains(code, "too_few_options"):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func (h *httpHandler) publishItineraryChange(c *gin.Context, tripID string, itemIDs ...string) {
	h.realtime.Publish(ActivityMessage{
		TripID:    tripID,
		EventType: ActivityEventItineraryChanged,
		ItemIDs:   itemIDs,
		ActorID:   c.GetString(userIDContextKey),
		Timestamp: time.Now().UTC(),
	})
}
