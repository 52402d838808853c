package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tripweave/tripweave/backend/internal/trips"
)

type createTripRequestPayload struct {
	Name         string `json:"name"`
	Destination  string `json:"destination"`
	Description  string `json:"description"`
	StartDate    string `json:"start_date"`
	DurationDays int    `json:"duration_days"`
}

func (h *httpHandler) handleCreateTrip(c *gin.Context) {
	var request createTripRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	trip, err := h.trips.CreateTrip(c.Request.Context(), trips.CreateTripRequest{
		Name:         request.Name,
		Destination:  request.Destination,
		Description:  request.Description,
		StartDate:    request.StartDate,
		DurationDays: request.DurationDays,
		CreatorID:    c.GetString(userIDContextKey),
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, trip)
}

func (h *httpHandler) handleListTrips(c *gin.Context) {
	result, err := h.trips.ListTripsForUser(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": result})
}

func (h *httpHandler) handleGetTrip(c *gin.Context) {
	trip, err := h.trips.GetTrip(c.Request.Context(), c.Param("tripID"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

type addMemberRequestPayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *httpHandler) handleAddMember(c *gin.Context) {
	var request addMemberRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	role := trips.Role(request.Role)
	membership, err := h.trips.AddMember(c.Request.Context(), c.Param("tripID"), request.UserID, role)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, membership)
}

func (h *httpHandler) handleListMembers(c *gin.Context) {
	memberships, err := h.trips.ListMembers(c.Request.Context(), c.Param("tripID"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": memberships})
}
