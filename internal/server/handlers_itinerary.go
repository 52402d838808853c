package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tripweave/tripweave/backend/internal/itinerary"
)

type itineraryResponsePayload struct {
	TripID       string            `json:"trip_id"`
	DurationDays int               `json:"duration_days"`
	Days         []dayGroupPayload `json:"days"`
	Unscheduled  []itemViewPayload `json:"unscheduled"`
}

type dayGroupPayload struct {
	Day   int               `json:"day"`
	Items []itemViewPayload `json:"items"`
}

type itemViewPayload struct {
	ItemID    string `json:"item_id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Location  string `json:"location,omitempty"`
	Notes     string `json:"notes,omitempty"`
	DayNumber *int   `json:"day_number"`
	Position  int    `json:"position"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Votes     int    `json:"votes"`
	UserVote  string `json:"user_vote"`
}

// handleGetItinerary returns the trip's schedule: one group per day in
// ascending order, unscheduled items last.
func (h *httpHandler) handleGetItinerary(c *gin.Context) {
	tripID := c.Param("tripID")
	trip, err := h.trips.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	groups, err := h.itinerary.ListSchedule(c.Request.Context(), tripID, c.GetString(userIDContextKey), trip.DurationDays)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	response := itineraryResponsePayload{
		TripID:       tripID,
		DurationDays: trip.DurationDays,
		Days:         make([]dayGroupPayload, 0, len(groups)),
		Unscheduled:  []itemViewPayload{},
	}
	for _, group := range groups {
		items := make([]itemViewPayload, 0, len(group.Items))
		for _, item := range group.Items {
			items = append(items, toItemPayload(item))
		}
		if group.Day == itinerary.DayUnscheduled {
			response.Unscheduled = items
			continue
		}
		response.Days = append(response.Days, dayGroupPayload{Day: group.Day, Items: items})
	}

	c.JSON(http.StatusOK, response)
}

type createItemRequestPayload struct {
	Title     string `json:"title"`
	Type      string `json:"type"`
	Location  string `json:"location"`
	Notes     string `json:"notes"`
	DayNumber *int   `json:"day_number"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *httpHandler) handleCreateItem(c *gin.Context) {
	var request createItemRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	itemType := itinerary.ItemTypeActivity
	if strings.TrimSpace(request.Type) != "" {
		parsed, err := itinerary.ParseItemType(request.Type)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_item_type"})
			return
		}
		itemType = parsed
	}

	tripID := c.Param("tripID")
	view, err := h.itinerary.CreateItem(c.Request.Context(), itinerary.CreateItemRequest{
		TripID:    tripID,
		Title:     strings.TrimSpace(request.Title),
		Type:      itemType,
		Location:  request.Location,
		Notes:     request.Notes,
		DayNumber: request.DayNumber,
		StartTime: request.StartTime,
		EndTime:   request.EndTime,
		CreatedBy: c.GetString(userIDContextKey),
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.publishItineraryChange(c, tripID, view.ItemID)
	c.JSON(http.StatusCreated, toItemPayload(view))
}

type updateItemRequestPayload struct {
	Title     *string `json:"title"`
	Type      *string `json:"type"`
	Location  *string `json:"location"`
	Notes     *string `json:"notes"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

func (h *httpHandler) handleUpdateItem(c *gin.Context) {
	var request updateItemRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	update := itinerary.UpdateItemRequest{
		Title:     request.Title,
		Location:  request.Location,
		Notes:     request.Notes,
		StartTime: request.StartTime,
		EndTime:   request.EndTime,
	}
	if request.Type != nil {
		parsed, err := itinerary.ParseItemType(*request.Type)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_item_type"})
			return
		}
		update.Type = &parsed
	}

	tripID := c.Param("tripID")
	itemID := c.Param("itemID")
	item, err := h.itinerary.UpdateItem(c.Request.Context(), tripID, itemID, update)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.publishItineraryChange(c, tripID, itemID)
	c.JSON(http.StatusOK, item)
}

func (h *httpHandler) handleDeleteItem(c *gin.Context) {
	tripID := c.Param("tripID")
	itemID := c.Param("itemID")
	if err := h.itinerary.DeleteItem(c.Request.Context(), tripID, itemID); err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.publishItineraryChange(c, tripID, itemID)
	c.Status(http.StatusNoContent)
}

type reorderRequestPayload struct {
	DayNumber *int `json:"day_number"`
	Position  int  `json:"position"`
}

func (h *httpHandler) handleReorderItem(c *gin.Context) {
	var request reorderRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	tripID := c.Param("tripID")
	itemID := c.Param("itemID")
	if err := h.itinerary.Reorder(c.Request.Context(), tripID, itemID, request.DayNumber, request.Position); err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.publishItineraryChange(c, tripID, itemID)
	c.Status(http.StatusNoContent)
}

type castVoteRequestPayload struct {
	Direction string `json:"direction"`
}

func (h *httpHandler) handleCastVote(c *gin.Context) {
	var request castVoteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	direction, err := itinerary.ParseDirection(request.Direction)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_direction"})
		return
	}

	tripID := c.Param("tripID")
	itemID := c.Param("itemID")
	result, err := h.itinerary.CastVote(c.Request.Context(), tripID, itemID, c.GetString(userIDContextKey), direction)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.publishItineraryChange(c, tripID, itemID)
	c.JSON(http.StatusOK, result)
}

func toItemPayload(view itinerary.ItemView) itemViewPayload {
	return itemViewPayload{
		ItemID:    view.ItemID,
		Title:     view.Title,
		Type:      string(view.Type),
		Location:  view.Location,
		Notes:     view.Notes,
		DayNumber: view.DayNumber,
		Position:  view.Position,
		StartTime: view.StartTime,
		EndTime:   view.EndTime,
		Votes:     view.Votes,
		UserVote:  string(view.UserVote),
	}
}
