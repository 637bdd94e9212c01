package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/3bube/Dormhub-sub000/metrics"
	"github.com/3bube/Dormhub-sub000/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// AllocationService is the allocation ledger. It owns allocation rows and
// drives the bed, room and student cache writes that follow from them.
//
// The bed row is the source of truth. Allocate claims it with a conditional
// write before anything else is written; room occupancy and the student cache
// are recomputed in the same transaction.
type AllocationService struct {
	DB       *gorm.DB
	Rooms    *RoomService
	Students StudentStore
	Now      func() time.Time
}

func NewAllocationService(db *gorm.DB, rooms *RoomService, students StudentStore) *AllocationService {
	return &AllocationService{DB: db, Rooms: rooms, Students: students, Now: time.Now}
}

type AllocateInput struct {
	StudentID     uint       `json:"studentId"`
	RoomID        uint       `json:"roomId"`
	BedID         uint       `json:"bedId"`
	StartDate     *time.Time `json:"startDate"`
	EndDate       *time.Time `json:"endDate"`
	PaymentStatus string     `json:"paymentStatus"`
}

type UpdateAllocationInput struct {
	EndDate       *time.Time `json:"endDate"`
	PaymentStatus *string    `json:"paymentStatus"`
}

// Allocate binds a student to a bed.
func (s *AllocationService) Allocate(ctx context.Context, in AllocateInput) (models.Allocation, error) {
	alloc, err := s.allocate(ctx, in)
	if err != nil {
		metrics.RecordAllocation("allocate", string(KindOf(err)))
		log.Warn().Err(err).Uint("student_id", in.StudentID).Uint("room_id", in.RoomID).Uint("bed_id", in.BedID).Msg("allocation rejected")
		return models.Allocation{}, err
	}
	metrics.RecordAllocation("allocate", "ok")
	log.Info().Uint("allocation_id", alloc.ID).Uint("student_id", alloc.StudentID).Str("room_number", alloc.RoomNumber).Int("bed_number", alloc.BedNumber).Msg("bed allocated")
	return alloc, nil
}

func (s *AllocationService) allocate(ctx context.Context, in AllocateInput) (models.Allocation, error) {
	if in.StudentID == 0 || in.RoomID == 0 || in.BedID == 0 {
		return models.Allocation{}, Validation("studentId, roomId and bedId are required")
	}
	payment := strings.ToLower(strings.TrimSpace(in.PaymentStatus))
	if payment == "" {
		payment = models.PaymentPending
	}
	if !models.ValidPaymentStatus(payment) {
		return models.Allocation{}, Validation("unknown payment status %q", in.PaymentStatus)
	}
	start := s.Now().UTC()
	if in.StartDate != nil {
		start = *in.StartDate
	}
	if in.EndDate != nil && in.EndDate.Before(start) {
		return models.Allocation{}, Validation("endDate must not be before startDate")
	}

	// Guards. Nothing has been written if any of these fail.
	student, err := s.Students.GetStudent(ctx, in.StudentID)
	if err != nil {
		return models.Allocation{}, err
	}
	if student.Role != models.RoleStudent {
		return models.Allocation{}, Validation("user %d is not a student", in.StudentID)
	}
	if _, err := s.activeForStudent(ctx, s.DB, in.StudentID); err == nil {
		return models.Allocation{}, Conflict("student %d already has an active allocation", in.StudentID)
	} else if !errors.Is(err, ErrNotFound) {
		return models.Allocation{}, err
	}
	room, err := s.Rooms.GetRoom(ctx, in.RoomID)
	if err != nil {
		return models.Allocation{}, err
	}
	if roomIsFull(room) {
		return models.Allocation{}, CapacityConflict("room %s is fully occupied", room.RoomNumber)
	}
	bed, err := s.Rooms.Beds.GetBed(ctx, in.BedID)
	if err != nil {
		return models.Allocation{}, err
	}
	if bed.RoomID != room.ID {
		return models.Allocation{}, Conflict("bed %d does not belong to room %s", bed.ID, room.RoomNumber)
	}
	if bed.Status != models.StatusAvailable {
		return models.Allocation{}, Conflict("bed %d is %s", bed.ID, bed.Status)
	}

	unlock := s.Rooms.Locks.Lock(room.ID)
	defer unlock()

	bedID, studentID := bed.ID, student.ID
	alloc := models.Allocation{
		StudentID:       student.ID,
		RoomID:          room.ID,
		BedID:           bed.ID,
		StartDate:       start,
		EndDate:         in.EndDate,
		PaymentStatus:   payment,
		Active:          true,
		ActiveBedID:     &bedID,
		ActiveStudentID: &studentID,
		RoomNumber:      room.RoomNumber,
		BedNumber:       bed.BedNumber,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rooms := s.Rooms.WithTx(tx)

		// The room may have changed since the guard read.
		var locked models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, room.ID).Error; err != nil {
			return dbError(err, "room")
		}
		if roomIsFull(locked) {
			return CapacityConflict("room %s is fully occupied", locked.RoomNumber)
		}
		if _, err := s.activeForStudent(ctx, tx, student.ID); err == nil {
			return Conflict("student %d already has an active allocation", student.ID)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := rooms.Beds.Occupy(ctx, bed.ID, room.ID, student.ID); err != nil {
			return err
		}
		if err := tx.Create(&alloc).Error; err != nil {
			if isDuplicateKey(err) {
				return Wrap(KindConflict, "bed or student already has an active allocation", err)
			}
			return dbError(err, "allocation")
		}
		if err := s.Students.WithTx(tx).SetRoomNumber(ctx, student.ID, locked.RoomNumber); err != nil {
			return err
		}
		return rooms.refreshProjection(ctx, room.ID, policyFill)
	})
	if err != nil {
		return models.Allocation{}, err
	}
	return alloc, nil
}

func roomIsFull(r models.Room) bool {
	return r.OccupiedCount >= r.Capacity || r.Status == models.StatusOccupied || r.Status == models.StatusFull
}

// UpdateAllocation edits allocation metadata only; bed, room and cache are
// left alone.
func (s *AllocationService) UpdateAllocation(ctx context.Context, id uint, in UpdateAllocationInput) (models.Allocation, error) {
	var alloc models.Allocation
	if err := s.DB.WithContext(ctx).First(&alloc, id).Error; err != nil {
		return alloc, dbError(err, "allocation")
	}
	updates := map[string]interface{}{}
	if in.PaymentStatus != nil {
		p := strings.ToLower(strings.TrimSpace(*in.PaymentStatus))
		if !models.ValidPaymentStatus(p) {
			return alloc, Validation("unknown payment status %q", *in.PaymentStatus)
		}
		updates["payment_status"] = p
	}
	if in.EndDate != nil {
		if in.EndDate.Before(alloc.StartDate) {
			return alloc, Validation("endDate must not be before startDate")
		}
		updates["end_date"] = *in.EndDate
	}
	if len(updates) == 0 {
		return alloc, Validation("nothing to update")
	}
	if err := s.DB.WithContext(ctx).Model(&models.Allocation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return alloc, dbError(err, "allocation")
	}
	if err := s.DB.WithContext(ctx).First(&alloc, id).Error; err != nil {
		return alloc, dbError(err, "allocation")
	}
	metrics.RecordAllocation("update", "ok")
	return alloc, nil
}

// EndAllocation releases the bed and closes the allocation. Ending an
// allocation that is already closed succeeds without touching the bed, which
// may belong to someone else by now.
func (s *AllocationService) EndAllocation(ctx context.Context, id uint) (models.Allocation, error) {
	var alloc models.Allocation
	if err := s.DB.WithContext(ctx).First(&alloc, id).Error; err != nil {
		err = dbError(err, "allocation")
		metrics.RecordAllocation("end", string(KindOf(err)))
		return alloc, err
	}
	if !alloc.Active {
		metrics.RecordAllocation("end", "noop")
		log.Info().Uint("allocation_id", alloc.ID).Msg("allocation already ended")
		return alloc, nil
	}

	unlock := s.Rooms.Locks.Lock(alloc.RoomID)
	defer unlock()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&alloc, id).Error; err != nil {
			return dbError(err, "allocation")
		}
		if !alloc.Active {
			return nil
		}
		rooms := s.Rooms.WithTx(tx)
		if _, err := rooms.Beds.Release(ctx, alloc.BedID); err != nil {
			return err
		}
		if err := rooms.refreshProjection(ctx, alloc.RoomID, policyRelease); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.Students.WithTx(tx).SetRoomNumber(ctx, alloc.StudentID, ""); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		end := s.Now().UTC()
		if alloc.EndDate != nil {
			end = *alloc.EndDate
		}
		if err := tx.Model(&models.Allocation{}).Where("id = ?", id).Updates(map[string]interface{}{
			"end_date":          end,
			"active":            false,
			"active_bed_id":     nil,
			"active_student_id": nil,
		}).Error; err != nil {
			return dbError(err, "allocation")
		}
		return tx.First(&alloc, id).Error
	})
	if err != nil {
		metrics.RecordAllocation("end", string(KindOf(err)))
		return models.Allocation{}, dbError(err, "allocation")
	}
	metrics.RecordAllocation("end", "ok")
	log.Info().Uint("allocation_id", alloc.ID).Uint("student_id", alloc.StudentID).Uint("bed_id", alloc.BedID).Msg("allocation ended")
	return alloc, nil
}

// CurrentForStudent returns the student's active allocation with room and bed.
func (s *AllocationService) CurrentForStudent(ctx context.Context, studentID uint) (models.Allocation, error) {
	if _, err := s.Students.GetStudent(ctx, studentID); err != nil {
		return models.Allocation{}, err
	}
	alloc, err := s.activeForStudent(ctx, s.DB.Preload("Student").Preload("Room").Preload("Bed"), studentID)
	if err != nil {
		return models.Allocation{}, err
	}
	return alloc, nil
}

func (s *AllocationService) activeForStudent(ctx context.Context, db *gorm.DB, studentID uint) (models.Allocation, error) {
	var alloc models.Allocation
	err := db.WithContext(ctx).
		Where("student_id = ? AND active = ?", studentID, true).
		Order("id DESC").
		First(&alloc).Error
	if err != nil {
		return alloc, dbError(err, "active allocation")
	}
	return alloc, nil
}

// Recent lists the newest allocations with student and room display fields.
func (s *AllocationService) Recent(ctx context.Context, limit int) ([]models.AllocationSummary, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	out := []models.AllocationSummary{}
	err := s.DB.WithContext(ctx).
		Table("allocations").
		Select(`allocations.id, allocations.student_id, students.full_name AS student_name,
			students.email AS student_email, allocations.room_id,
			COALESCE(rooms.room_number, allocations.room_number) AS room_number,
			allocations.bed_id, allocations.bed_number, allocations.start_date, allocations.end_date,
			allocations.payment_status, allocations.active, allocations.created_at`).
		Joins("LEFT JOIN students ON students.id = allocations.student_id").
		Joins("LEFT JOIN rooms ON rooms.id = allocations.room_id").
		Order("allocations.created_at DESC").
		Order("allocations.id DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, dbError(err, "allocations")
	}
	return out, nil
}

// ReconcileResult reports what a reconcile pass rewrote.
type ReconcileResult struct {
	RoomID        uint   `json:"roomId"`
	OccupiedCount int    `json:"occupiedCount"`
	Status        string `json:"status"`
	CachesWritten int    `json:"cachesWritten"`
}

// Reconcile recomputes a room's projections from its beds and rewrites the
// cached room number of every student actively allocated there. It repairs
// drift left by an interrupted writer and is safe to repeat.
func (s *AllocationService) Reconcile(ctx context.Context, roomID uint) (ReconcileResult, error) {
	unlock := s.Rooms.Locks.Lock(roomID)
	defer unlock()

	res := ReconcileResult{RoomID: roomID}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rooms := s.Rooms.WithTx(tx)
		if _, err := rooms.GetRoom(ctx, roomID); err != nil {
			return err
		}
		if err := rooms.refreshProjection(ctx, roomID, policyDerive); err != nil {
			return err
		}
		room, err := rooms.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		res.OccupiedCount = room.OccupiedCount
		res.Status = room.Status

		var active []models.Allocation
		if err := tx.Where("room_id = ? AND active = ?", roomID, true).Find(&active).Error; err != nil {
			return dbError(err, "allocations")
		}
		students := s.Students.WithTx(tx)
		for _, a := range active {
			if err := students.SetRoomNumber(ctx, a.StudentID, room.RoomNumber); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			res.CachesWritten++
		}
		return nil
	})
	if err != nil {
		metrics.RecordAllocation("reconcile", string(KindOf(err)))
		return ReconcileResult{}, err
	}
	metrics.RecordAllocation("reconcile", "ok")
	log.Info().Uint("room_id", roomID).Int("occupied_count", res.OccupiedCount).Str("status", res.Status).Msg("room reconciled")
	return res, nil
}
