package stats

import (
	"context"
	"fmt"
	"time"

	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

// Range bounds a report by order creation time. From is inclusive, To is
// exclusive; nil means unbounded.
type Range struct {
	From *time.Time
	To   *time.Time
}

// WaiterSales is one waiter's row in the sales report
type WaiterSales struct {
	WaiterID    uint              `json:"waiterId"`
	Name        string            `json:"name"`
	Status      models.UserStatus `json:"status"`
	Orders      int               `json:"orders"`
	TotalSales  decimal.Decimal   `json:"totalSales"`
	AverageSale decimal.Decimal   `json:"averageSale"`
}

// Sales summarises non-cancelled orders
type Sales struct {
	From        *time.Time      `json:"from,omitempty"`
	To          *time.Time      `json:"to,omitempty"`
	OrderCount  int             `json:"orderCount"`
	TotalSales  decimal.Decimal `json:"totalSales"`
	AverageSale decimal.Decimal `json:"averageSale"`
	Waiters     []WaiterSales   `json:"waiters"`
}

// Service computes sales statistics
type Service struct {
	db *gorm.DB
}

// NewService creates a statistics service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Sales totals order value per waiter. Every current waiter gets a row, even
// without orders; orders taken by other staff only count toward the totals.
func (s *Service) Sales(ctx context.Context, r Range) (*Sales, error) {
	query := s.db.Select("id, waiter_id, total").Where("status <> ?", models.OrderCancelled)
	if r.From != nil {
		query = query.Where("created_at >= ?", *r.From)
	}
	if r.To != nil {
		query = query.Where("created_at < ?", *r.To)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	var waiters []models.User
	err := s.db.Where("role = ?", models.RoleWaiter).Order("name ASC").Find(&waiters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load waiters: %w", err)
	}

	type tally struct {
		count int
		sum   decimal.Decimal
	}
	byWaiter := make(map[uint]*tally)
	report := &Sales{From: r.From, To: r.To, TotalSales: decimal.Zero, Waiters: []WaiterSales{}}
	for _, o := range orders {
		t, ok := byWaiter[o.WaiterID]
		if !ok {
			t = &tally{sum: decimal.Zero}
			byWaiter[o.WaiterID] = t
		}
		t.count++
		t.sum = t.sum.Add(o.Total)
		report.TotalSales = report.TotalSales.Add(o.Total)
	}
	report.OrderCount = len(orders)
	report.AverageSale = average(report.TotalSales, report.OrderCount)

	for _, w := range waiters {
		row := WaiterSales{WaiterID: w.ID, Name: w.Name, Status: w.Status, TotalSales: decimal.Zero, AverageSale: decimal.Zero}
		if t, ok := byWaiter[w.ID]; ok {
			row.Orders = t.count
			row.TotalSales = t.sum
			row.AverageSale = average(t.sum, t.count)
		}
		report.Waiters = append(report.Waiters, row)
	}
	return report, nil
}

func average(sum decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2)
}
