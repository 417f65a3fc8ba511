package api

import (
	"net/http"
	"time"

	"comanda/internal/auth"
	"comanda/internal/catalog"
	"comanda/internal/database"
	"comanda/internal/metrics"
	"comanda/internal/models"
	"comanda/internal/monitoring"
	"comanda/internal/orders"
	"comanda/internal/realtime"
	"comanda/internal/staff"
	"comanda/internal/stats"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// Services are the components the HTTP layer dispatches to
type Services struct {
	DB      *gorm.DB
	Auth    *auth.Service
	Orders  *orders.Service
	Catalog *catalog.Service
	Staff   *staff.Service
	Stats   *stats.Service
	Hub     *realtime.Hub
	Metrics *metrics.Collector
	Monitor *monitoring.Monitor
	Logger  *logrus.Logger
}

// Options tune session cookies and the login limiter
type Options struct {
	SessionTTL     time.Duration
	SecureCookies  bool
	LoginRateLimit float64
	LoginBurst     int
}

// API represents the restaurant's HTTP surface
type API struct {
	Router *gin.Engine

	db      *gorm.DB
	auth    *auth.Service
	orders  *orders.Service
	catalog *catalog.Service
	staff   *staff.Service
	stats   *stats.Service
	hub     *realtime.Hub
	monitor *monitoring.Monitor
	logger  *logrus.Logger
	limiter *RateLimiter
	opts    Options
}

// New creates the API and registers its routes
func New(s Services, opts Options) *API {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.Logger))
	if s.Metrics != nil {
		router.Use(requestMetrics(s.Metrics))
	}

	monitor := s.Monitor
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}

	a := &API{
		Router:  router,
		db:      s.DB,
		auth:    s.Auth,
		orders:  s.Orders,
		catalog: s.Catalog,
		staff:   s.Staff,
		stats:   s.Stats,
		hub:     s.Hub,
		monitor: monitor,
		logger:  s.Logger,
		limiter: NewRateLimiter(opts.LoginRateLimit, opts.LoginBurst, s.Logger),
		opts:    opts,
	}

	a.setupRoutes()
	return a
}

// setupRoutes configures all API endpoints
func (a *API) setupRoutes() {
	a.Router.GET("/health", a.Health)

	v1 := a.Router.Group("/api/v1")
	{
		v1.POST("/auth/login", a.limiter.Middleware(), a.Login)
		v1.POST("/auth/logout", a.Logout)
	}

	// Any logged-in user
	session := v1.Group("", a.requireSession())
	{
		session.GET("/auth/me", a.Me)

		session.GET("/menu", a.ListMenu)
		session.GET("/menu/categories", a.ListCategories)

		session.GET("/tables", a.ListTables)
		session.GET("/tables/available", a.AvailableTables)
		session.GET("/tables/occupancy", a.TableOccupancy)

		session.GET("/orders/:id", a.GetOrder)
		session.GET("/orders/waiter/:waiterId", a.ListWaiterOrders)

		session.GET("/ws/orders", a.OrderFeed)
	}

	// Order taking
	floor := session.Group("", requireRole(models.RoleWaiter, models.RoleAdmin))
	{
		floor.POST("/orders", a.CreateOrder)
		floor.PATCH("/orders/:id", a.PatchOrder)
	}

	admin := session.Group("", requireRole(models.RoleAdmin))
	{
		admin.GET("/orders", a.ListOrders)

		admin.GET("/waiters", a.ListWaiters)
		admin.POST("/waiters", a.CreateWaiter)
		admin.PATCH("/waiters/:id", a.UpdateWaiter)
		admin.DELETE("/waiters/:id", a.DeleteWaiter)

		admin.GET("/stats/sales", a.SalesStats)
	}
}

// Health reports database reachability and recent activity
func (a *API) Health(c *gin.Context) {
	status, code, dbState := "ok", http.StatusOK, "up"
	if err := database.Ping(c.Request.Context(), a.db); err != nil {
		a.logger.WithError(err).Error("health check: database unreachable")
		status, code, dbState = "degraded", http.StatusServiceUnavailable, "down"
	}

	body := gin.H{
		"status":   status,
		"database": dbState,
		"activity": a.monitor.Snapshot(),
	}
	if a.hub != nil {
		body["realtimeClients"] = a.hub.Clients()
	}
	c.JSON(code, body)
}

// OrderFeed upgrades the connection to a websocket carrying order events
func (a *API) OrderFeed(c *gin.Context) {
	if err := a.hub.ServeWS(c.Writer, c.Request); err != nil {
		a.logger.WithError(err).Warn("websocket upgrade failed")
	}
}
