package models

import (
	"errors"
	"fmt"
)

// Error categories shared by every service. Handlers map them to status codes.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrAuth         = errors.New("authentication failed")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// MenuItemNotFoundError names the menu item an order line referenced
type MenuItemNotFoundError struct {
	ID uint
}

func (e *MenuItemNotFoundError) Error() string {
	return fmt.Sprintf("menu item not found: %d", e.ID)
}

func (e *MenuItemNotFoundError) Unwrap() error { return ErrNotFound }

// OrderNotFoundError is returned when an order id does not resolve
type OrderNotFoundError struct {
	ID uint
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order not found: %d", e.ID)
}

func (e *OrderNotFoundError) Unwrap() error { return ErrNotFound }

// TableNotFoundError is returned when a table id does not resolve
type TableNotFoundError struct {
	ID uint
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table not found: %d", e.ID)
}

func (e *TableNotFoundError) Unwrap() error { return ErrNotFound }

// UserNotFoundError is returned when a user id does not resolve
type UserNotFoundError struct {
	ID uint
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user not found: %d", e.ID)
}

func (e *UserNotFoundError) Unwrap() error { return ErrNotFound }
