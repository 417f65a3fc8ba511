package models

// User represents a staff account. Only admins carry an email and password hash;
// waiters authenticate by name alone.
type User struct {
	Model
	Name     string     `gorm:"not null;index" json:"name"`
	Email    *string    `gorm:"unique_index" json:"email,omitempty"`
	Password string     `json:"-"`
	Role     UserRole   `gorm:"type:varchar(20);not null;default:'WAITER'" json:"role"`
	Status   UserStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
}

// UserRole represents the staff role of a user
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleWaiter  UserRole = "WAITER"
	RoleKitchen UserRole = "KITCHEN"
	RoleCashier UserRole = "CASHIER"
)

// UserStatus represents whether a user may log in
type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserInactive  UserStatus = "INACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
)

// UserSummary is the public projection returned at login and stored in the
// display cookie.
type UserSummary struct {
	ID   uint     `json:"id"`
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}

// Summary returns the public projection of u
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Role: u.Role}
}

// IsActive reports whether the account may authenticate
func (u *User) IsActive() bool {
	return u.Status == UserActive
}
