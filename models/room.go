package models

import (
	"time"

	"gorm.io/datatypes"
)

// Room status values. Bed rows share the same vocabulary.
const (
	StatusAvailable   = "available"
	StatusOccupied    = "occupied"
	StatusMaintenance = "maintenance"
	StatusFull        = "full"
)

// ValidStatus reports whether s is one of the room/bed status values.
func ValidStatus(s string) bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusMaintenance, StatusFull:
		return true
	}
	return false
}

type Room struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	RoomNumber string  `json:"roomNumber" gorm:"column:room_number;uniqueIndex;type:varchar(50);not null"`
	Floor      string  `json:"floor" gorm:"type:varchar(10)"`
	Building   *string `json:"building,omitempty" gorm:"type:varchar(100)"`
	Capacity   int     `json:"capacity" gorm:"not null"`
	Type       string  `json:"type" gorm:"type:varchar(50)"`

	Amenities datatypes.JSONSlice[string] `json:"amenities"`
	Price     *float64                    `json:"price,omitempty"`

	// OccupiedCount and Status are projections of the room's bed rows; they are
	// recomputed whenever a bed changes state.
	OccupiedCount int    `json:"occupiedCount" gorm:"column:occupied_count;not null;default:0"`
	Status        string `json:"status" gorm:"type:varchar(20);index;not null;default:available"`

	Beds []Bed `gorm:"foreignKey:RoomID" json:"beds,omitempty"`
}

// AvailableRoom is a read-time join of a room and its free bed count.
type AvailableRoom struct {
	Room
	AvailableBeds int `json:"availableBeds"`
}
