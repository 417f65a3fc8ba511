package api

import (
	"net/http"

	"comanda/internal/stats"

	"github.com/gin-gonic/gin"
)

func (a *API) SalesStats(c *gin.Context) {
	from, to, err := timeRange(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	report, err := a.stats.Sales(c.Request.Context(), stats.Range{From: from, To: to})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
