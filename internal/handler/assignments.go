package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studygroup/internal/assignment"
)

// CreateAssignment serves POST /assignments.
func (h *Handler) CreateAssignment(c *gin.Context) {
	doc, ok := bindDocument(c)
	if !ok {
		return
	}
	res, err := h.assignments.Create(c.Request.Context(), doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetAssignment serves GET /assignment/:id.
func (h *Handler) GetAssignment(c *gin.Context) {
	doc, err := h.assignments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// UpdateAssignment serves PUT /assignment/:id and creates the assignment when missing.
func (h *Handler) UpdateAssignment(c *gin.Context) {
	doc, ok := bindDocument(c)
	if !ok {
		return
	}
	res, err := h.assignments.Update(c.Request.Context(), c.Param("id"), doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteAssignment serves DELETE /assignment/:id.
func (h *Handler) DeleteAssignment(c *gin.Context) {
	res, err := h.assignments.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListAssignments serves ?page=&size=. Missing or invalid values count as 0 and size 0
// returns everything from the offset on.
func (h *Handler) ListAssignments(c *gin.Context) {
	page := assignment.Page{Page: queryInt(c, "page"), Size: queryInt(c, "size")}
	docs, err := h.assignments.List(c.Request.Context(), page)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(docs))
}

// CountAssignments serves GET /assignmentsCount.
func (h *Handler) CountAssignments(c *gin.Context) {
	n, err := h.assignments.Count(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}
