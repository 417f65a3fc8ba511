package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"comanda/internal/auth"
	"comanda/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	tokenCookie = "auth-token"
	// userCookie is for client-side display only; the server never reads it
	userCookie = "user-data"
)

type loginRequest struct {
	Type     string `json:"type" binding:"required"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login starts a waiter or admin session and sets the session cookies
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var (
		res *auth.LoginResult
		err error
	)
	switch req.Type {
	case auth.KindWaiter:
		res, err = a.auth.LoginWaiter(c.Request.Context(), req.Name)
	case auth.KindAdmin:
		res, err = a.auth.LoginAdmin(c.Request.Context(), req.Email, req.Password)
	default:
		err = fmt.Errorf("%w: unknown login type %q", models.ErrValidation, req.Type)
	}
	if err != nil {
		a.respondError(c, err)
		return
	}

	userData, err := json.Marshal(res.User)
	if err != nil {
		a.respondError(c, err)
		return
	}

	maxAge := int(a.opts.SessionTTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, res.Token, maxAge, "/", "", a.opts.SecureCookies, true)
	c.SetCookie(userCookie, string(userData), maxAge, "/", "", a.opts.SecureCookies, false)
	a.monitor.RecordEvent("auth.login")

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      res.Token,
		"user":       res.User,
		"expiresAt":  res.ExpiresAt,
		"redirectTo": landingPage(res.User.Role),
	})
}

// Logout closes the session if there is one. It always reports success.
func (a *API) Logout(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	_ = c.ShouldBindJSON(&req)

	token := req.Token
	if token == "" {
		token = sessionToken(c)
	}
	if err := a.auth.Logout(c.Request.Context(), token); err != nil {
		a.logger.WithError(err).Warn("logout failed")
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", a.opts.SecureCookies, true)
	c.SetCookie(userCookie, "", -1, "/", "", a.opts.SecureCookies, false)
	a.monitor.RecordEvent("auth.logout")

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}

// Me returns the caller's identity as resolved from the session store
func (a *API) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentPrincipal(c)})
}

func landingPage(role models.UserRole) string {
	if role == models.RoleAdmin {
		return "/admin"
	}
	return "/mesero"
}
