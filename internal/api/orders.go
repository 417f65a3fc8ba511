package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"comanda/internal/auth"
	"comanda/internal/models"
	"comanda/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createOrderRequest struct {
	TableID  uint               `json:"tableId"`
	WaiterID uint               `json:"waiterId"`
	Notes    string             `json:"notes"`
	Items    []orders.LineInput `json:"items"`
}

// patchOrderRequest carries exactly one kind of change
type patchOrderRequest struct {
	Items  []orders.LineInput  `json:"items"`
	Status *models.OrderStatus `json:"status"`
	Tip    *decimal.Decimal    `json:"tip"`
}

func (r *patchOrderRequest) changes() int {
	n := 0
	if r.Items != nil {
		n++
	}
	if r.Status != nil {
		n++
	}
	if r.Tip != nil {
		n++
	}
	return n
}

// Order management handlers

func (a *API) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p := currentPrincipal(c)
	if req.WaiterID == 0 {
		req.WaiterID = p.UserID
	}
	if p.Role == models.RoleWaiter && req.WaiterID != p.UserID {
		a.respondError(c, fmt.Errorf("%w: waiters can only open orders for themselves", models.ErrForbidden))
		return
	}

	order, err := a.orders.Create(c.Request.Context(), orders.CreateInput{
		TableID:  req.TableID,
		WaiterID: req.WaiterID,
		Notes:    req.Notes,
		Items:    req.Items,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}

	a.monitor.RecordEvent(orders.EventCreated)
	c.JSON(http.StatusCreated, order)
}

func (a *API) GetOrder(c *gin.Context) {
	order, ok := a.visibleOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

// PatchOrder adds items, changes status or records a tip
func (a *API) PatchOrder(c *gin.Context) {
	var req patchOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.changes() != 1 {
		a.respondError(c, fmt.Errorf("%w: provide exactly one of items, status or tip", models.ErrValidation))
		return
	}

	current, ok := a.visibleOrder(c)
	if !ok {
		return
	}

	var (
		order *models.Order
		event string
		err   error
	)
	ctx := c.Request.Context()
	switch {
	case req.Items != nil:
		order, err = a.orders.AddItems(ctx, current.ID, req.Items)
		event = orders.EventItemsAdded
	case req.Status != nil:
		order, err = a.orders.Transition(ctx, current.ID, *req.Status)
		event = orders.EventStatusChanged
	default:
		order, err = a.orders.SetTip(ctx, current.ID, *req.Tip)
		event = orders.EventTipSet
	}
	if err != nil {
		a.respondError(c, err)
		return
	}

	a.monitor.RecordEvent(event)
	c.JSON(http.StatusOK, order)
}

// ListOrders lists orders for the admin, optionally by day, range and status
func (a *API) ListOrders(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("today") == "true" {
		list, err := a.orders.Today(ctx)
		if err != nil {
			a.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
		return
	}

	from, to, err := timeRange(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	filter := orders.Filter{From: from, To: to}
	if s := c.Query("status"); s != "" {
		filter.Status = models.OrderStatus(s)
		if !filter.Status.Valid() {
			a.respondError(c, fmt.Errorf("%w: unknown order status %q", models.ErrValidation, s))
			return
		}
	}

	list, err := a.orders.List(ctx, filter)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) ListWaiterOrders(c *gin.Context) {
	waiterID, err := paramID(c, "waiterId")
	if err != nil {
		a.respondError(c, err)
		return
	}
	if p := currentPrincipal(c); !canSeeWaiter(p, waiterID) {
		a.respondError(c, fmt.Errorf("%w: orders belong to another waiter", models.ErrForbidden))
		return
	}

	list, err := a.orders.ListByWaiter(c.Request.Context(), waiterID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// visibleOrder loads the :id order and checks the caller may see it. On
// failure the response has been written.
func (a *API) visibleOrder(c *gin.Context) (*models.Order, bool) {
	id, err := paramID(c, "id")
	if err != nil {
		a.respondError(c, err)
		return nil, false
	}
	order, err := a.orders.Get(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return nil, false
	}
	if !canSeeWaiter(currentPrincipal(c), order.WaiterID) {
		a.respondError(c, fmt.Errorf("%w: order belongs to another waiter", models.ErrForbidden))
		return nil, false
	}
	return order, true
}

// canSeeWaiter reports whether p may read orders taken by waiterID.
// Waiters only see their own.
func canSeeWaiter(p *auth.Principal, waiterID uint) bool {
	if p == nil {
		return false
	}
	return p.Role != models.RoleWaiter || p.UserID == waiterID
}

var errBadTime = errors.New("expected RFC3339 timestamp or YYYY-MM-DD date")

// timeRange reads ?from= and ?to=. A bare date in `to` covers that whole day.
func timeRange(c *gin.Context) (*time.Time, *time.Time, error) {
	from, err := parseTime(c.Query("from"), false)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: from: %v", models.ErrValidation, err)
	}
	to, err := parseTime(c.Query("to"), true)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: to: %v", models.ErrValidation, err)
	}
	return from, to, nil
}

func parseTime(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil, errBadTime
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}
