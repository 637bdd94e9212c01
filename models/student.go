package models

import "time"

// Roles resolved by the identity gate.
const (
	RoleStudent       = "student"
	RoleAdministrator = "administrator"
)

// Student is a row of the student record store. RoomNumber is a read cache of
// the student's active allocation and is empty when there is none.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	FullName   string `gorm:"size:255" json:"fullName"`
	Email      string `gorm:"uniqueIndex;size:150" json:"email"`
	Role       string `gorm:"size:32;not null;default:student" json:"role"`
	RoomNumber string `gorm:"column:room_number;size:50" json:"roomNumber"`
}

// All lists every table model in migration order.
func All() []interface{} {
	return []interface{}{&Student{}, &Room{}, &Bed{}, &Allocation{}}
}
