package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"comanda/internal/config"
	"comanda/internal/database"
	"comanda/internal/logging"
	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	eventType string
	order     *models.Order
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	order, _ := payload.(*models.Order)
	p.events = append(p.events, recordedEvent{eventType: eventType, order: order})
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	svc       *Service
	publisher *fakePublisher
	table     models.Table
	waiter    models.User
	burger    models.MenuItem
	soda      models.MenuItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Dialect: "sqlite3", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	f := &fixture{db: db, publisher: &fakePublisher{}}
	f.table = models.Table{Number: "07", Capacity: 4, Location: "Planta Baja", Status: models.TableAvailable}
	require.NoError(t, db.Create(&f.table).Error)
	f.waiter = models.User{Name: "Ana", Role: models.RoleWaiter, Status: models.UserActive}
	require.NoError(t, db.Create(&f.waiter).Error)

	category := models.Category{Name: "Principales", IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	f.burger = models.MenuItem{Name: "Hamburguesa", Price: decimal.NewFromInt(50), CategoryID: category.ID, IsAvailable: true}
	require.NoError(t, db.Create(&f.burger).Error)
	f.soda = models.MenuItem{Name: "Refresco", Price: decimal.RequireFromString("35.50"), CategoryID: category.ID, IsAvailable: true}
	require.NoError(t, db.Create(&f.soda).Error)

	f.svc = NewService(db, logging.Discard(), f.publisher, nil)
	return f
}

func (f *fixture) tableStatus(t *testing.T) models.TableStatus {
	t.Helper()
	var table models.Table
	require.NoError(t, f.db.First(&table, f.table.ID).Error)
	return table.Status
}

func (f *fixture) create(t *testing.T, lines ...LineInput) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), CreateInput{
		TableID:  f.table.ID,
		WaiterID: f.waiter.ID,
		Items:    lines,
	})
	require.NoError(t, err)
	return order
}

func TestCreate_OccupiesTableAndSnapshotsPrices(t *testing.T) {
	f := newFixture(t)

	order := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 2})

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, "100.00", order.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", order.Tax.StringFixed(2))
	assert.Equal(t, "100.00", order.Total.StringFixed(2))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "50.00", order.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "100.00", order.Items[0].TotalPrice.StringFixed(2))
	require.NotNil(t, order.Table)
	assert.Equal(t, "07", order.Table.Number)
	require.NotNil(t, order.Waiter)
	assert.Equal(t, "Ana", order.Waiter.Name)

	assert.Equal(t, models.TableOccupied, f.tableStatus(t))
	assert.Equal(t, []string{EventCreated}, f.publisher.types())
}

func TestCreate_PriceChangeDoesNotAffectExistingLines(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 1})

	require.NoError(t, f.db.Model(&models.MenuItem{}).Where("id = ?", f.burger.ID).
		Update("price", decimal.NewFromInt(80)).Error)

	reloaded, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", reloaded.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "50.00", reloaded.Total.StringFixed(2))
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		input  CreateInput
		target error
	}{
		{
			name:   "no items",
			input:  CreateInput{TableID: f.table.ID, WaiterID: f.waiter.ID},
			target: models.ErrValidation,
		},
		{
			name:   "zero quantity",
			input:  CreateInput{TableID: f.table.ID, WaiterID: f.waiter.ID, Items: []LineInput{{MenuItemID: f.burger.ID}}},
			target: models.ErrValidation,
		},
		{
			name:   "unknown table",
			input:  CreateInput{TableID: 999, WaiterID: f.waiter.ID, Items: []LineInput{{MenuItemID: f.burger.ID, Quantity: 1}}},
			target: models.ErrNotFound,
		},
		{
			name:   "unknown waiter",
			input:  CreateInput{TableID: f.table.ID, WaiterID: 999, Items: []LineInput{{MenuItemID: f.burger.ID, Quantity: 1}}},
			target: models.ErrNotFound,
		},
		{
			name:   "unknown menu item",
			input:  CreateInput{TableID: f.table.ID, WaiterID: f.waiter.ID, Items: []LineInput{{MenuItemID: 999, Quantity: 1}}},
			target: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	var count int
	f.db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
	assert.Equal(t, models.TableAvailable, f.tableStatus(t))
}

func TestCreate_UnknownMenuItemIsTyped(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{
		TableID:  f.table.ID,
		WaiterID: f.waiter.ID,
		Items:    []LineInput{{MenuItemID: f.burger.ID, Quantity: 1}, {MenuItemID: 42, Quantity: 1}},
	})

	var notFound *models.MenuItemNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, uint(42), notFound.ID)
}

func TestAddItems_AppendsToPendingOrder(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 2})

	updated, err := f.svc.AddItems(context.Background(), order.ID, []LineInput{
		{MenuItemID: f.soda.ID, Quantity: 1, Notes: "sin hielo"},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	assert.Equal(t, f.burger.ID, updated.Items[0].MenuItemID)
	assert.Equal(t, 2, updated.Items[0].Quantity)
	assert.Equal(t, "sin hielo", updated.Items[1].Notes)
	assert.Equal(t, "135.50", updated.Subtotal.StringFixed(2))
	assert.Equal(t, "135.50", updated.Total.StringFixed(2))
	assert.Equal(t, []string{EventCreated, EventItemsAdded}, f.publisher.types())
}

func TestAddItems_RejectsNonPendingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 1})

	for _, next := range []models.OrderStatus{models.OrderConfirmed, models.OrderPreparing, models.OrderReady} {
		_, err := f.svc.Transition(ctx, order.ID, next)
		require.NoError(t, err)
	}

	_, err := f.svc.AddItems(ctx, order.ID, []LineInput{{MenuItemID: f.soda.ID, Quantity: 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidState))
	assert.Contains(t, err.Error(), "not pending")

	unchanged, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, unchanged.Items, 1)
	assert.Equal(t, "50.00", unchanged.Total.StringFixed(2))
}

func TestAddItems_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddItems(context.Background(), 404, []LineInput{{MenuItemID: f.soda.ID, Quantity: 1}})

	var notFound *models.OrderNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestTransition_FullLifecycleReleasesTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 2})

	steps := []struct {
		status models.OrderStatus
		table  models.TableStatus
	}{
		{models.OrderConfirmed, models.TableOccupied},
		{models.OrderPreparing, models.TableOccupied},
		{models.OrderReady, models.TableOccupied},
		{models.OrderServed, models.TableAvailable},
		{models.OrderCompleted, models.TableAvailable},
	}

	for _, step := range steps {
		updated, err := f.svc.Transition(ctx, order.ID, step.status)
		require.NoError(t, err, "transition to %s", step.status)
		assert.Equal(t, step.status, updated.Status)
		assert.Equal(t, step.table, f.tableStatus(t), "table after %s", step.status)
	}

	completed, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, "100.00", completed.Total.StringFixed(2))
}

func TestTransition_CancelReleasesTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 1})
	require.Equal(t, models.TableOccupied, f.tableStatus(t))

	cancelled, err := f.svc.Transition(ctx, order.ID, models.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Nil(t, cancelled.CompletedAt)
	assert.Equal(t, models.TableAvailable, f.tableStatus(t))

	_, err = f.svc.Transition(ctx, order.ID, models.OrderConfirmed)
	assert.True(t, errors.Is(err, models.ErrInvalidState))
}

func TestTransition_RejectsIllegalMoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 1})

	_, err := f.svc.Transition(ctx, order.ID, models.OrderReady)
	assert.True(t, errors.Is(err, models.ErrInvalidState))

	_, err = f.svc.Transition(ctx, order.ID, models.OrderPending)
	assert.True(t, errors.Is(err, models.ErrInvalidState))

	_, err = f.svc.Transition(ctx, order.ID, models.OrderStatus("EATEN"))
	assert.True(t, errors.Is(err, models.ErrValidation))

	current, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, current.Status)
	assert.Equal(t, models.TableOccupied, f.tableStatus(t))
}

func TestTransition_CompletingServedOrderKeepsReusedTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 1})
	for _, next := range []models.OrderStatus{models.OrderConfirmed, models.OrderPreparing, models.OrderReady, models.OrderServed} {
		_, err := f.svc.Transition(ctx, first.ID, next)
		require.NoError(t, err)
	}
	require.Equal(t, models.TableAvailable, f.tableStatus(t))

	second := f.create(t, LineInput{MenuItemID: f.soda.ID, Quantity: 1})
	require.Equal(t, models.TableOccupied, f.tableStatus(t))

	_, err := f.svc.Transition(ctx, first.ID, models.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, f.tableStatus(t), "order %d still pending on the table", second.ID)

	_, err = f.svc.Transition(ctx, second.ID, models.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, f.tableStatus(t))
}

func TestTransition_TableStaysOccupiedWhileAnotherOrderHoldsIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 1})
	second := f.create(t, LineInput{MenuItemID: f.soda.ID, Quantity: 1})

	_, err := f.svc.Transition(ctx, first.ID, models.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, f.tableStatus(t))

	_, err = f.svc.Transition(ctx, second.ID, models.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, f.tableStatus(t))
}

// failTableWrites makes every UPDATE on the tables table fail
func failTableWrites(t *testing.T, db *gorm.DB) {
	t.Helper()
	db.Callback().Update().Before("gorm:update").Register("test:fail_table_writes", func(scope *gorm.Scope) {
		if scope.TableName() == "tables" {
			scope.Err(errors.New("table write failed"))
		}
	})
}

func TestCreate_RollsBackWhenTableWriteFails(t *testing.T) {
	f := newFixture(t)
	failTableWrites(t, f.db)

	_, err := f.svc.Create(context.Background(), CreateInput{
		TableID:  f.table.ID,
		WaiterID: f.waiter.ID,
		Items:    []LineInput{{MenuItemID: f.burger.ID, Quantity: 2}},
	})
	require.Error(t, err)

	var orderCount, itemCount int
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, f.db.Model(&models.OrderItem{}).Count(&itemCount).Error)
	assert.Zero(t, orderCount)
	assert.Zero(t, itemCount)
	assert.Equal(t, models.TableAvailable, f.tableStatus(t))
	assert.Empty(t, f.publisher.types())
}

func TestTransition_RollsBackWhenTableWriteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 1})
	for _, next := range []models.OrderStatus{models.OrderConfirmed, models.OrderPreparing, models.OrderReady} {
		_, err := f.svc.Transition(ctx, order.ID, next)
		require.NoError(t, err)
	}

	failTableWrites(t, f.db)
	_, err := f.svc.Transition(ctx, order.ID, models.OrderServed)
	require.Error(t, err)

	current, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderReady, current.Status)
	assert.Equal(t, models.TableOccupied, f.tableStatus(t))
}

func TestTable_CanBeReusedAfterRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 1})
	_, err := f.svc.Transition(ctx, first.ID, models.OrderCancelled)
	require.NoError(t, err)
	require.Equal(t, models.TableAvailable, f.tableStatus(t))

	second := f.create(t, LineInput{MenuItemID: f.soda.ID, Quantity: 2})
	assert.Equal(t, models.TableOccupied, f.tableStatus(t))
	assert.Equal(t, "71.00", second.Total.StringFixed(2))
}

func TestSetTip_RecomputesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 2})

	tipped, err := f.svc.SetTip(ctx, order.ID, decimal.RequireFromString("15.50"))
	require.NoError(t, err)
	assert.Equal(t, "15.50", tipped.Tip.StringFixed(2))
	assert.Equal(t, "115.50", tipped.Total.StringFixed(2))

	withItems, err := f.svc.AddItems(ctx, order.ID, []LineInput{{MenuItemID: f.burger.ID, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, "150.00", withItems.Subtotal.StringFixed(2))
	assert.Equal(t, "165.50", withItems.Total.StringFixed(2))

	_, err = f.svc.SetTip(ctx, order.ID, decimal.NewFromInt(-1))
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = f.svc.SetTip(ctx, order.ID, decimal.RequireFromString("0.005"))
	assert.True(t, errors.Is(err, models.ErrValidation))

	trailing, err := f.svc.SetTip(ctx, order.ID, decimal.RequireFromString("10.500"))
	require.NoError(t, err)
	assert.Equal(t, "160.50", trailing.Total.StringFixed(2))
}

func TestSetTip_RejectsCancelledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 1})
	_, err := f.svc.Transition(ctx, order.ID, models.OrderCancelled)
	require.NoError(t, err)

	_, err = f.svc.SetTip(ctx, order.ID, decimal.NewFromInt(5))
	assert.True(t, errors.Is(err, models.ErrInvalidState))
}

func TestList_FiltersAndOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := models.User{Name: "Luis", Role: models.RoleWaiter, Status: models.UserActive}
	require.NoError(t, f.db.Create(&other).Error)

	first := f.create(t, LineInput{MenuItemID: f.burger.ID, Quantity: 1})
	_, err := f.svc.Transition(ctx, first.ID, models.OrderCancelled)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, CreateInput{
		TableID:  f.table.ID,
		WaiterID: other.ID,
		Items:    []LineInput{{MenuItemID: f.soda.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	cancelled, err := f.svc.List(ctx, Filter{Status: models.OrderCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, first.ID, cancelled[0].ID)

	mine, err := f.svc.ListByWaiter(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, second.ID, mine[0].ID)

	future := time.Now().Add(time.Hour)
	none, err := f.svc.List(ctx, Filter{From: &future})
	require.NoError(t, err)
	assert.Empty(t, none)

	today, err := f.svc.Today(ctx)
	require.NoError(t, err)
	assert.Len(t, today, 2)
}

func TestGet_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), 12345)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	start, end := DayBounds(time.Date(2024, 3, 9, 18, 45, 0, 0, loc))

	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, loc), end)
}
