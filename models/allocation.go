package models

import "time"

// Payment status values for an allocation.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentOverdue  = "overdue"
	PaymentRefunded = "refunded"
)

func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentRefunded:
		return true
	}
	return false
}

type Allocation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	StudentID uint `gorm:"column:student_id;index;not null" json:"studentId"`
	RoomID    uint `gorm:"column:room_id;index;not null" json:"roomId"`
	BedID     uint `gorm:"column:bed_id;index;not null" json:"bedId"`

	StartDate     time.Time  `gorm:"column:start_date;not null" json:"startDate"`
	EndDate       *time.Time `gorm:"column:end_date" json:"endDate,omitempty"`
	PaymentStatus string     `gorm:"column:payment_status;type:varchar(20);not null;default:pending" json:"paymentStatus"`
	Active        bool       `gorm:"index;not null;default:false" json:"active"`

	// ActiveBedID mirrors BedID while the allocation is active and is NULL
	// afterwards. The unique index allows at most one active row per bed.
	ActiveBedID *uint `gorm:"column:active_bed_id;uniqueIndex" json:"-"`

	// ActiveStudentID does the same for the student: one active row each.
	ActiveStudentID *uint `gorm:"column:active_student_id;uniqueIndex" json:"-"`

	// Display snapshots taken at allocation time; rooms may be renamed or
	// deleted later while the row is kept as history.
	RoomNumber string `gorm:"column:room_number;type:varchar(50)" json:"roomNumber"`
	BedNumber  int    `gorm:"column:bed_number" json:"bedNumber"`

	Student *Student `gorm:"foreignKey:StudentID;references:ID" json:"student,omitempty"`
	Room    *Room    `gorm:"foreignKey:RoomID;references:ID" json:"room,omitempty"`
	Bed     *Bed     `gorm:"foreignKey:BedID;references:ID" json:"bed,omitempty"`
}

// AllocationSummary is the listing view with denormalized student and room
// display fields.
type AllocationSummary struct {
	ID            uint       `json:"id"`
	StudentID     uint       `json:"studentId"`
	StudentName   string     `json:"studentName"`
	StudentEmail  string     `json:"studentEmail"`
	RoomID        uint       `json:"roomId"`
	RoomNumber    string     `json:"roomNumber"`
	BedID         uint       `json:"bedId"`
	BedNumber     int        `json:"bedNumber"`
	StartDate     time.Time  `json:"startDate"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	PaymentStatus string     `json:"paymentStatus"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"createdAt"`
}
