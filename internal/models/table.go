package models

// Table represents a physical seating unit. Tables are reused across many
// orders; only the order engine changes their status.
type Table struct {
	Model
	Number   string      `gorm:"unique_index;not null" json:"number"`
	Capacity int         `gorm:"not null" json:"capacity"`
	Location string      `json:"location,omitempty"`
	Status   TableStatus `gorm:"type:varchar(20);not null;default:'AVAILABLE'" json:"status"`
}

// TableStatus represents the occupancy state of a table
type TableStatus string

const (
	TableAvailable    TableStatus = "AVAILABLE"
	TableOccupied     TableStatus = "OCCUPIED"
	TableReserved     TableStatus = "RESERVED"
	TableOutOfService TableStatus = "OUT_OF_SERVICE"
)

// Valid reports whether s is a known table status
func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved, TableOutOfService:
		return true
	}
	return false
}

// TableOccupancy is a table together with whether an open order references it
type TableOccupancy struct {
	ID             uint        `json:"id"`
	Number         string      `json:"number"`
	Status         TableStatus `json:"status"`
	HasActiveOrder bool        `json:"hasActiveOrder"`
}
