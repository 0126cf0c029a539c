package httpserver

import (
	"net/http"
	"strconv"

	authsvc "customer-service/internal/service/auth"
	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"senha" binding:"required"`
}

// login answers with the token in the Authorization header and an empty body.
func (h *handlers) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	tok, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeToken(c, tok)
	c.Status(http.StatusOK)
}

func (h *handlers) refreshToken(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	tok, err := h.auth.Refresh(ctx, principal(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeToken(c, tok)
	c.Status(http.StatusNoContent)
}

func writeToken(c *gin.Context, tok authsvc.Token) {
	c.Header("Authorization", "Bearer "+tok.Value)
	c.Header("X-Token-Expires-In", strconv.Itoa(int(tok.ExpiresIn.Seconds())))
}
