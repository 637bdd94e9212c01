package models

import "time"

type Bed struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	RoomID    uint   `gorm:"column:room_id;not null;uniqueIndex:idx_room_bed_number" json:"roomId"`
	BedNumber int    `gorm:"column:bed_number;not null;uniqueIndex:idx_room_bed_number" json:"bedNumber"`
	Status    string `gorm:"type:varchar(20);index;not null;default:available" json:"status"`

	// OccupiedBy is informational; the active allocation is authoritative.
	OccupiedBy *uint `gorm:"column:occupied_by" json:"occupiedBy,omitempty"`

	// Version is bumped by every status change.
	Version uint `gorm:"not null;default:0" json:"version"`
}
