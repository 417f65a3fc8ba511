package catalog

import (
	"context"
	"fmt"

	"comanda/internal/models"

	"github.com/jinzhu/gorm"
)

// Occupancy is the dining room report: every table and how many orders are open
type Occupancy struct {
	Tables       []models.TableOccupancy `json:"tables"`
	ActiveOrders int                     `json:"activeOrders"`
}

// Service reads the menu and the table registry. It never writes.
type Service struct {
	db *gorm.DB
}

// NewService creates a catalog reader
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListMenu returns the available menu items with their category, by name
func (s *Service) ListMenu(ctx context.Context) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	err := s.db.Preload("Category").
		Where("is_available = ?", true).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list menu: %w", err)
	}
	return items, nil
}

// ListCategories returns the active categories with their available items
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.
		Preload("MenuItems", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_available = ?", true).Order("name ASC")
		}).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ListTables returns every table ordered by number
func (s *Service) ListTables(ctx context.Context) ([]models.Table, error) {
	return s.tables(nil)
}

// AvailableTables returns the tables that can take a new order
func (s *Service) AvailableTables(ctx context.Context) ([]models.Table, error) {
	status := models.TableAvailable
	return s.tables(&status)
}

func (s *Service) tables(status *models.TableStatus) ([]models.Table, error) {
	query := s.db.Order("number ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	tables := []models.Table{}
	if err := query.Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

// Occupancy reports each table's status and whether an open order is on it
func (s *Service) Occupancy(ctx context.Context) (*Occupancy, error) {
	tables, err := s.tables(nil)
	if err != nil {
		return nil, err
	}

	var active []models.Order
	err = s.db.Select("id, table_id").
		Where("status IN (?)", models.OpenStatuses).
		Find(&active).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load open orders: %w", err)
	}

	busy := make(map[uint]bool, len(active))
	for _, o := range active {
		busy[o.TableID] = true
	}

	report := &Occupancy{
		Tables:       make([]models.TableOccupancy, 0, len(tables)),
		ActiveOrders: len(active),
	}
	for _, t := range tables {
		report.Tables = append(report.Tables, models.TableOccupancy{
			ID:             t.ID,
			Number:         t.Number,
			Status:         t.Status,
			HasActiveOrder: busy[t.ID],
		})
	}
	return report, nil
}
