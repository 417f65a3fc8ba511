package models

import "time"

// UserSession is created at login and soft-invalidated at logout. Rows are
// never deleted.
type UserSession struct {
	Model
	UserID     uint       `gorm:"not null;index" json:"userId"`
	Token      string     `gorm:"type:varchar(512);unique_index;not null" json:"-"`
	IsActive   bool       `gorm:"not null" json:"isActive"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	LogoutTime *time.Time `json:"logoutTime,omitempty"`
}
