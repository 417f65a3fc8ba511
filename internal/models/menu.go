package models

import "github.com/shopspring/decimal"

// Category groups menu items
type Category struct {
	Model
	Name        string     `gorm:"unique_index;not null" json:"name"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `gorm:"not null" json:"isActive"`
	MenuItems   []MenuItem `gorm:"foreignkey:CategoryID" json:"menuItems,omitempty"`
}

// MenuItem represents a dish or drink on the menu
type MenuItem struct {
	Model
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID  uint            `gorm:"not null;index" json:"categoryId"`
	Category    *Category       `json:"category,omitempty"`
	IsAvailable bool            `gorm:"not null" json:"isAvailable"`
}
