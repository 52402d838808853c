package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type addCommentRequestPayload struct {
	Body string `json:"body"`
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	var request addCommentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	comment, err := h.comments.AddComment(
		c.Request.Context(),
		c.Param("tripID"),
		c.Param("itemID"),
		c.GetString(userIDContextKey),
		request.Body,
	)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	thread, err := h.comments.ListComments(c.Request.Context(), c.Param("tripID"), c.Param("itemID"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": thread})
}

type createSurveyRequestPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (h *httpHandler) handleCreateSurvey(c *gin.Context) {
	var request createSurveyRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	survey, err := h.surveys.CreateSurvey(
		c.Request.Context(),
		c.Param("tripID"),
		c.GetString(userIDContextKey),
		request.Question,
		request.Options,
	)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, survey)
}

func (h *httpHandler) handleListSurveys(c *gin.Context) {
	views, err := h.surveys.ListSurveys(c.Request.Context(), c.Param("tripID"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"surveys": views})
}

type submitResponseRequestPayload struct {
	OptionIndex *int `json:"option_index"`
}

func (h *httpHandler) handleSubmitResponse(c *gin.Context) {
	var request submitResponseRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.OptionIndex == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	err := h.surveys.SubmitResponse(
		c.Request.Context(),
		c.Param("tripID"),
		c.Param("surveyID"),
		c.GetString(userIDContextKey),
		*request.OptionIndex,
	)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleCloseSurvey(c *gin.Context) {
	err := h.surveys.CloseSurvey(
		c.Request.Context(),
		c.Param("tripID"),
		c.Param("surveyID"),
		c.GetString(userIDContextKey),
	)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
