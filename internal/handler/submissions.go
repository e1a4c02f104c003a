package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studygroup/internal/auth"
	"studygroup/internal/docstore"
	"studygroup/internal/submission"
)

// CreateSubmission serves POST /submittedAssignments.
func (h *Handler) CreateSubmission(c *gin.Context) {
	doc, ok := bindDocument(c)
	if !ok {
		return
	}
	res, err := h.submissions.Create(c.Request.Context(), doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListOwnSubmissions requires RequireUser upstream.
func (h *Handler) ListOwnSubmissions(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "not authorized"})
		return
	}
	docs, err := h.submissions.ListByOwner(c.Request.Context(), c.Query("email"), identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(docs))
}

// ListAllSubmissions serves GET /allSubmission.
func (h *Handler) ListAllSubmissions(c *gin.Context) {
	docs, err := h.submissions.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(docs))
}

// GetSubmission serves GET /submittedAssignments/:id.
func (h *Handler) GetSubmission(c *gin.Context) {
	doc, err := h.submissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// GradeSubmission serves PATCH /submittedAssignments/:id.
func (h *Handler) GradeSubmission(c *gin.Context) {
	var grade submission.Grade
	if err := c.ShouldBindJSON(&grade); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "request body must be a JSON object"})
		return
	}
	res, err := h.submissions.Grade(c.Request.Context(), c.Param("id"), grade)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil(docs []docstore.Document) []docstore.Document {
	if docs == nil {
		return []docstore.Document{}
	}
	return docs
}
