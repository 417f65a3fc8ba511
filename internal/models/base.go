package models

import "time"

// Model is the common primary key and timestamp set shared by every record.
// It mirrors gorm.Model with JSON names the front end expects.
type Model struct {
	ID        uint       `gorm:"primary_key" json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `sql:"index" json:"-"`
}
