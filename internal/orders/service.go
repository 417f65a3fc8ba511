package orders

import (
	"context"
	"fmt"
	"time"

	"comanda/internal/database"
	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Event types published after each committed change
const (
	EventCreated       = "order.created"
	EventItemsAdded    = "order.items_added"
	EventStatusChanged = "order.status_changed"
	EventTipSet        = "order.tip_set"
)

// Publisher receives order events after they are committed
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Recorder receives order metrics
type Recorder interface {
	RecordOrderCreated()
	RecordItemsAdded(n int)
	RecordTransition(status string, released bool, completed bool, total decimal.Decimal)
}

// LineInput is one requested order line
type LineInput struct {
	MenuItemID uint   `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes,omitempty"`
}

// CreateInput describes a new order
type CreateInput struct {
	TableID  uint        `json:"tableId"`
	WaiterID uint        `json:"waiterId"`
	Notes    string      `json:"notes,omitempty"`
	Items    []LineInput `json:"items"`
}

// Filter narrows order listings. From is inclusive, To is exclusive.
type Filter struct {
	From     *time.Time
	To       *time.Time
	Status   models.OrderStatus
	WaiterID uint
	TableID  uint
}

// Service is the order engine. It is the only component that writes orders
// and the only one that changes a table's status.
type Service struct {
	db        *gorm.DB
	publisher Publisher
	recorder  Recorder
	logger    *logrus.Entry
	now       func() time.Time
}

// NewService creates an order engine. publisher and recorder may be nil.
func NewService(db *gorm.DB, logger *logrus.Logger, publisher Publisher, recorder Recorder) *Service {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		db:        db,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger.WithField("component", "orders"),
		now:       time.Now,
	}
}

// Create opens an order on a table. Prices are snapshotted from the menu and
// the table is marked OCCUPIED in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if in.TableID == 0 {
		return nil, fmt.Errorf("%w: tableId is required", models.ErrValidation)
	}
	if in.WaiterID == 0 {
		return nil, fmt.Errorf("%w: waiterId is required", models.ErrValidation)
	}
	if err := validateLines(in.Items); err != nil {
		return nil, err
	}

	var order models.Order
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, in.TableID).Error; err != nil {
			return lookupError(err, &models.TableNotFoundError{ID: in.TableID})
		}

		var waiter models.User
		if err := tx.First(&waiter, in.WaiterID).Error; err != nil {
			return lookupError(err, &models.UserNotFoundError{ID: in.WaiterID})
		}
		if !waiter.IsActive() {
			return fmt.Errorf("%w: waiter %d is not active", models.ErrValidation, waiter.ID)
		}

		lines, err := priceLines(tx, in.Items)
		if err != nil {
			return err
		}

		order = models.Order{
			TableID:  table.ID,
			WaiterID: waiter.ID,
			Status:   models.OrderPending,
			Notes:    in.Notes,
			Tip:      decimal.Zero,
			Items:    lines,
		}
		order.Recalculate()

		// Items are inserted one by one so each gets the new order id
		order.Items = nil
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := insertLines(tx, order.ID, lines); err != nil {
			return err
		}

		return setTableStatus(tx, table.ID, models.TableOccupied)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":  created.ID,
		"table_id":  created.TableID,
		"waiter_id": created.WaiterID,
		"total":     created.Total.StringFixed(2),
	}).Info("order created")
	s.recorder.RecordOrderCreated()
	s.publisher.Publish(EventCreated, created)
	return created, nil
}

// AddItems appends lines to a PENDING order. Existing lines are never touched;
// subtotal grows by the new lines and total keeps the tip.
func (s *Service) AddItems(ctx context.Context, orderID uint, items []LineInput) (*models.Order, error) {
	if err := validateLines(items); err != nil {
		return nil, err
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderPending {
			return fmt.Errorf("%w: order %d is not pending (status %s)", models.ErrInvalidState, order.ID, order.Status)
		}

		lines, err := priceLines(tx, items)
		if err != nil {
			return err
		}
		if err := insertLines(tx, order.ID, lines); err != nil {
			return err
		}

		added := decimal.Zero
		for _, line := range lines {
			added = added.Add(line.TotalPrice)
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderPending).
			Updates(map[string]interface{}{
				"subtotal": order.Subtotal.Add(added),
				"tax":      decimal.Zero,
				"total":    order.Subtotal.Add(added).Add(order.Tip),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update order totals: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: order %d is not pending", models.ErrInvalidState, order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"lines":    len(items),
		"total":    updated.Total.StringFixed(2),
	}).Info("items added to order")
	s.recorder.RecordItemsAdded(len(items))
	s.publisher.Publish(EventItemsAdded, updated)
	return updated, nil
}

// Transition moves an order one step along its pipeline, or cancels it.
// Reaching SERVED, COMPLETED or CANCELLED releases the table in the same
// transaction as the status write.
func (s *Service) Transition(ctx context.Context, orderID uint, to models.OrderStatus) (*models.Order, error) {
	var released bool
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := models.CanTransition(order.Status, to); err != nil {
			return err
		}

		updates := map[string]interface{}{"status": to}
		if to == models.OrderCompleted {
			updates["completed_at"] = s.now()
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update order status: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: order %d changed concurrently", models.ErrInvalidState, order.ID)
		}

		// SERVED -> COMPLETED does not touch the table: it was released at
		// SERVED and may already carry a newer order.
		if to.ReleasesTable() && !order.Status.ReleasesTable() {
			released = true
			return releaseTable(tx, order.TableID, order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   to,
		"table_id": updated.TableID,
	}).Info("order status changed")
	s.recorder.RecordTransition(string(to), released, to == models.OrderCompleted, updated.Total)
	s.publisher.Publish(EventStatusChanged, updated)
	return updated, nil
}

// SetTip records a tip and recomputes the total
func (s *Service) SetTip(ctx context.Context, orderID uint, tip decimal.Decimal) (*models.Order, error) {
	if tip.IsNegative() {
		return nil, fmt.Errorf("%w: tip cannot be negative", models.ErrValidation)
	}
	if !tip.Equal(tip.Round(2)) {
		return nil, fmt.Errorf("%w: tip cannot have more than two decimal places", models.ErrValidation)
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status == models.OrderCancelled {
			return fmt.Errorf("%w: order %d is cancelled", models.ErrInvalidState, order.ID)
		}
		return tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"tip":   tip,
			"total": order.Subtotal.Add(tip),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"order_id": orderID, "tip": tip.StringFixed(2)}).Info("tip recorded")
	s.publisher.Publish(EventTipSet, updated)
	return updated, nil
}

// Get returns an order with its table, waiter and items
func (s *Service) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := withDetails(s.db).First(&order, id).Error; err != nil {
		return nil, lookupError(err, &models.OrderNotFoundError{ID: id})
	}
	return &order, nil
}

// List returns orders matching f, newest first
func (s *Service) List(ctx context.Context, f Filter) ([]models.Order, error) {
	query := withDetails(s.db).Order("created_at DESC").Order("id DESC")
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at < ?", *f.To)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.WaiterID != 0 {
		query = query.Where("waiter_id = ?", f.WaiterID)
	}
	if f.TableID != 0 {
		query = query.Where("table_id = ?", f.TableID)
	}

	orders := []models.Order{}
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListByWaiter returns a waiter's orders, newest first
func (s *Service) ListByWaiter(ctx context.Context, waiterID uint) ([]models.Order, error) {
	return s.List(ctx, Filter{WaiterID: waiterID})
}

// Today returns the orders created since local midnight
func (s *Service) Today(ctx context.Context) ([]models.Order, error) {
	from, to := DayBounds(s.now())
	return s.List(ctx, Filter{From: &from, To: &to})
}

// DayBounds returns local midnight of t's day and of the following day
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

func withDetails(db *gorm.DB) *gorm.DB {
	unscoped := func(db *gorm.DB) *gorm.DB { return db.Unscoped() }
	return db.
		Preload("Table").
		Preload("Waiter", unscoped).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.MenuItem", unscoped)
}

func loadOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	if err := tx.First(&order, id).Error; err != nil {
		return nil, lookupError(err, &models.OrderNotFoundError{ID: id})
	}
	return &order, nil
}

func validateLines(items []LineInput) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", models.ErrValidation)
	}
	for _, item := range items {
		if item.MenuItemID == 0 {
			return fmt.Errorf("%w: menuItemId is required", models.ErrValidation)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be a positive integer for menu item %d", models.ErrValidation, item.MenuItemID)
		}
	}
	return nil
}

// priceLines resolves menu items and snapshots their current prices
func priceLines(tx *gorm.DB, items []LineInput) ([]models.OrderItem, error) {
	ids := make([]uint, 0, len(items))
	seen := make(map[uint]bool, len(items))
	for _, item := range items {
		if !seen[item.MenuItemID] {
			seen[item.MenuItemID] = true
			ids = append(ids, item.MenuItemID)
		}
	}

	var menuItems []models.MenuItem
	if err := tx.Where("id IN (?)", ids).Find(&menuItems).Error; err != nil {
		return nil, fmt.Errorf("failed to load menu items: %w", err)
	}
	byID := make(map[uint]*models.MenuItem, len(menuItems))
	for i := range menuItems {
		byID[menuItems[i].ID] = &menuItems[i]
	}

	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		menuItem, ok := byID[item.MenuItemID]
		if !ok {
			return nil, &models.MenuItemNotFoundError{ID: item.MenuItemID}
		}
		lines = append(lines, models.NewOrderItem(menuItem, item.Quantity, item.Notes))
	}
	return lines, nil
}

func insertLines(tx *gorm.DB, orderID uint, lines []models.OrderItem) error {
	for i := range lines {
		lines[i].OrderID = orderID
		if err := tx.Create(&lines[i]).Error; err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

func setTableStatus(tx *gorm.DB, tableID uint, status models.TableStatus) error {
	err := tx.Model(&models.Table{}).Where("id = ?", tableID).Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to set table %d %s: %w", tableID, status, err)
	}
	return nil
}

// releaseTable marks the table AVAILABLE unless another order still holds it
func releaseTable(tx *gorm.DB, tableID, orderID uint) error {
	var holding int
	err := tx.Model(&models.Order{}).
		Where("table_id = ? AND id <> ? AND status IN (?)", tableID, orderID, models.HoldingStatuses).
		Count(&holding).Error
	if err != nil {
		return fmt.Errorf("failed to check table %d: %w", tableID, err)
	}
	if holding > 0 {
		return nil
	}
	return setTableStatus(tx, tableID, models.TableAvailable)
}

func lookupError(err error, notFound error) error {
	if gorm.IsRecordNotFoundError(err) {
		return notFound
	}
	return fmt.Errorf("lookup failed: %w", err)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

type nopRecorder struct{}

func (nopRecorder) RecordOrderCreated()                                  {}
func (nopRecorder) RecordItemsAdded(int)                                 {}
func (nopRecorder) RecordTransition(string, bool, bool, decimal.Decimal) {}
