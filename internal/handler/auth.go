package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"studygroup/internal/auth"
)

// IssueToken signs a credential for the posted email and stores it in the token cookie.
func (h *Handler) IssueToken(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email required"})
		return
	}

	token, _, err := h.tokens.Issue(auth.Identity{Email: req.Email})
	if err != nil {
		h.fail(c, err)
		return
	}
	zerolog.Ctx(c.Request.Context()).Info().Str("email", req.Email).Msg("credential issued")

	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(auth.CookieName, token, 0, "/", "", h.opts.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Logout expires the token cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.opts.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
