package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Menu and table handlers

func (a *API) ListMenu(c *gin.Context) {
	items, err := a.catalog.ListMenu(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (a *API) ListCategories(c *gin.Context) {
	categories, err := a.catalog.ListCategories(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (a *API) ListTables(c *gin.Context) {
	tables, err := a.catalog.ListTables(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

func (a *API) AvailableTables(c *gin.Context) {
	tables, err := a.catalog.AvailableTables(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

func (a *API) TableOccupancy(c *gin.Context) {
	report, err := a.catalog.Occupancy(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
