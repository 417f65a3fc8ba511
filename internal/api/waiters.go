package api

import (
	"fmt"
	"net/http"

	"comanda/internal/models"

	"github.com/gin-gonic/gin"
)

type createWaiterRequest struct {
	Name string `json:"name"`
}

// updateWaiterRequest accepts either a status or an isActive flag
type updateWaiterRequest struct {
	Status   *models.UserStatus `json:"status"`
	IsActive *bool              `json:"isActive"`
}

// Staff management handlers

func (a *API) ListWaiters(c *gin.Context) {
	waiters, err := a.staff.ListWaiters(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, waiters)
}

func (a *API) CreateWaiter(c *gin.Context) {
	var req createWaiterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	waiter, err := a.staff.CreateWaiter(c.Request.Context(), req.Name)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, waiter)
}

func (a *API) UpdateWaiter(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}

	var req updateWaiterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var active bool
	switch {
	case req.IsActive != nil:
		active = *req.IsActive
	case req.Status != nil && *req.Status == models.UserActive:
		active = true
	case req.Status != nil && *req.Status == models.UserInactive:
		active = false
	default:
		a.respondError(c, fmt.Errorf("%w: provide isActive or a status of ACTIVE or INACTIVE", models.ErrValidation))
		return
	}

	waiter, err := a.staff.SetWaiterActive(c.Request.Context(), id, active)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, waiter)
}

func (a *API) DeleteWaiter(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.staff.DeleteWaiter(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "waiter deleted"})
}
