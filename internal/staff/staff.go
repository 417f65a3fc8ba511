package staff

import (
	"context"
	"fmt"
	"strings"
	"time"

	"comanda/internal/database"
	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// Service manages waiter accounts
type Service struct {
	db     *gorm.DB
	logger *logrus.Entry
}

// NewService creates a waiter directory
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger.WithField("component", "staff")}
}

// ListWaiters returns every waiter ordered by name
func (s *Service) ListWaiters(ctx context.Context) ([]models.User, error) {
	waiters := []models.User{}
	err := s.db.Where("role = ?", models.RoleWaiter).Order("name ASC").Find(&waiters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list waiters: %w", err)
	}
	return waiters, nil
}

// CreateWaiter adds an active waiter. Names are unique among waiters since
// they are the waiter's login.
func (s *Service) CreateWaiter(ctx context.Context, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrValidation)
	}

	var count int
	err := s.db.Model(&models.User{}).
		Where("name = ? AND role = ?", name, models.RoleWaiter).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check waiter name: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: a waiter named %q already exists", models.ErrConflict, name)
	}

	waiter := models.User{Name: name, Role: models.RoleWaiter, Status: models.UserActive}
	if err := s.db.Create(&waiter).Error; err != nil {
		return nil, fmt.Errorf("failed to create waiter: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"waiter_id": waiter.ID, "name": waiter.Name}).Info("waiter created")
	return &waiter, nil
}

// SetWaiterActive activates or deactivates a waiter. Deactivation closes the
// waiter's open sessions in the same transaction.
func (s *Service) SetWaiterActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	status := models.UserInactive
	if active {
		status = models.UserActive
	}

	var waiter models.User
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := findWaiter(tx, id, &waiter); err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update waiter: %w", err)
		}
		waiter.Status = status
		if active {
			return nil
		}
		return closeSessions(tx, id)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"waiter_id": id, "status": status}).Info("waiter status changed")
	return &waiter, nil
}

// DeleteWaiter soft-deletes a waiter; their orders keep the reference
func (s *Service) DeleteWaiter(ctx context.Context, id uint) error {
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var waiter models.User
		if err := findWaiter(tx, id, &waiter); err != nil {
			return err
		}
		if err := tx.Delete(&waiter).Error; err != nil {
			return fmt.Errorf("failed to delete waiter: %w", err)
		}
		return closeSessions(tx, id)
	})
	if err != nil {
		return err
	}

	s.logger.WithField("waiter_id", id).Info("waiter deleted")
	return nil
}

func findWaiter(tx *gorm.DB, id uint, out *models.User) error {
	err := tx.Where("id = ? AND role = ?", id, models.RoleWaiter).First(out).Error
	if gorm.IsRecordNotFoundError(err) {
		return &models.UserNotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("failed to look up waiter: %w", err)
	}
	return nil
}

func closeSessions(tx *gorm.DB, userID uint) error {
	err := tx.Model(&models.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]interface{}{"is_active": false, "logout_time": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("failed to close sessions: %w", err)
	}
	return nil
}
