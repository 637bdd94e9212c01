package services

import (
	"context"
	"database/sql"
	"sort"

	"github.com/3bube/Dormhub-sub000/models"

	"gorm.io/gorm"
)

// BedService owns bed rows. Every method runs against s.DB, which is either
// the root handle or a transaction bound with WithTx.
type BedService struct {
	DB *gorm.DB
}

func NewBedService(db *gorm.DB) *BedService {
	return &BedService{DB: db}
}

// WithTx returns a copy of the service bound to tx.
func (s *BedService) WithTx(tx *gorm.DB) *BedService {
	return &BedService{DB: tx}
}

// CreateBeds creates count available beds numbered startingNumber upwards.
func (s *BedService) CreateBeds(ctx context.Context, roomID uint, count, startingNumber int) ([]models.Bed, error) {
	if count <= 0 {
		return nil, Validation("bed count must be positive, got %d", count)
	}
	if startingNumber <= 0 {
		return nil, Validation("starting bed number must be positive, got %d", startingNumber)
	}
	numbers := make([]int, count)
	for i := range numbers {
		numbers[i] = startingNumber + i
	}
	return s.createNumbered(ctx, roomID, numbers)
}

func (s *BedService) createNumbered(ctx context.Context, roomID uint, numbers []int) ([]models.Bed, error) {
	if err := s.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}
	beds := make([]models.Bed, 0, len(numbers))
	for _, n := range numbers {
		beds = append(beds, models.Bed{
			RoomID:    roomID,
			BedNumber: n,
			Status:    models.StatusAvailable,
		})
	}
	if len(beds) == 0 {
		return beds, nil
	}
	if err := s.DB.WithContext(ctx).Create(&beds).Error; err != nil {
		return nil, dbError(err, "bed")
	}
	return beds, nil
}

// ListBeds returns every bed of the room ordered by bed number.
func (s *BedService) ListBeds(ctx context.Context, roomID uint) ([]models.Bed, error) {
	if err := s.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}
	var beds []models.Bed
	if err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("bed_number ASC").
		Find(&beds).Error; err != nil {
		return nil, dbError(err, "beds")
	}
	return beds, nil
}

// GetBed loads a single bed.
func (s *BedService) GetBed(ctx context.Context, bedID uint) (models.Bed, error) {
	var bed models.Bed
	if err := s.DB.WithContext(ctx).First(&bed, bedID).Error; err != nil {
		return bed, dbError(err, "bed")
	}
	return bed, nil
}

func (s *BedService) CountByStatus(ctx context.Context, roomID uint, status string) (int, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Bed{}).
		Where("room_id = ? AND status = ?", roomID, status).
		Count(&n).Error; err != nil {
		return 0, dbError(err, "beds")
	}
	return int(n), nil
}

// BedCounts is a per-status tally of one room's beds.
type BedCounts struct {
	Total     int
	Available int
	Occupied  int
}

// Counts tallies the room's beds by status in a single query.
func (s *BedService) Counts(ctx context.Context, roomID uint) (BedCounts, error) {
	var rows []struct {
		Status string
		N      int
	}
	if err := s.DB.WithContext(ctx).Model(&models.Bed{}).
		Select("status, COUNT(*) AS n").
		Where("room_id = ?", roomID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return BedCounts{}, dbError(err, "beds")
	}
	var c BedCounts
	for _, r := range rows {
		c.Total += r.N
		switch r.Status {
		case models.StatusAvailable:
			c.Available = r.N
		case models.StatusOccupied:
			c.Occupied = r.N
		}
	}
	return c, nil
}

// SetStatus writes a bed's status unconditionally.
func (s *BedService) SetStatus(ctx context.Context, bedID uint, status string) error {
	if !models.ValidStatus(status) {
		return Validation("unknown bed status %q", status)
	}
	updates := map[string]interface{}{
		"status":  status,
		"version": gorm.Expr("version + 1"),
	}
	if status != models.StatusOccupied {
		updates["occupied_by"] = nil
	}
	res := s.DB.WithContext(ctx).Model(&models.Bed{}).Where("id = ?", bedID).Updates(updates)
	if res.Error != nil {
		return dbError(res.Error, "bed")
	}
	if res.RowsAffected == 0 {
		return NotFound("bed %d not found", bedID)
	}
	return nil
}

// Occupy flips a bed from available to occupied in one conditional write.
// A write that matches no row means another caller got there first.
func (s *BedService) Occupy(ctx context.Context, bedID, roomID, studentID uint) error {
	res := s.DB.WithContext(ctx).Model(&models.Bed{}).
		Where("id = ? AND room_id = ? AND status = ?", bedID, roomID, models.StatusAvailable).
		Updates(map[string]interface{}{
			"status":      models.StatusOccupied,
			"occupied_by": studentID,
			"version":     gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return dbError(res.Error, "bed")
	}
	if res.RowsAffected == 0 {
		return Conflict("bed %d is not available", bedID)
	}
	return nil
}

// Release returns an occupied bed to available. Releasing a bed that is not
// occupied is a no-op and reports false.
func (s *BedService) Release(ctx context.Context, bedID uint) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Bed{}).
		Where("id = ? AND status = ?", bedID, models.StatusOccupied).
		Updates(map[string]interface{}{
			"status":      models.StatusAvailable,
			"occupied_by": nil,
			"version":     gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, dbError(res.Error, "bed")
	}
	return res.RowsAffected > 0, nil
}

// AppendBeds adds count beds, filling gaps in the numbering before extending it.
func (s *BedService) AppendBeds(ctx context.Context, roomID uint, count int) ([]models.Bed, error) {
	if count <= 0 {
		return nil, Validation("bed count must be positive, got %d", count)
	}
	var used []int
	if err := s.DB.WithContext(ctx).Model(&models.Bed{}).
		Where("room_id = ?", roomID).
		Pluck("bed_number", &used).Error; err != nil {
		return nil, dbError(err, "beds")
	}
	return s.createNumbered(ctx, roomID, nextBedNumbers(used, count))
}

// MaxOccupiedNumber returns the highest bed number that is occupied, or 0.
func (s *BedService) MaxOccupiedNumber(ctx context.Context, roomID uint) (int, error) {
	var n sql.NullInt64
	if err := s.DB.WithContext(ctx).Model(&models.Bed{}).
		Select("MAX(bed_number)").
		Where("room_id = ? AND status = ?", roomID, models.StatusOccupied).
		Row().Scan(&n); err != nil {
		return 0, dbError(err, "beds")
	}
	return int(n.Int64), nil
}

// RemoveAbove deletes the room's beds numbered above maxNumber. Occupied beds
// are never deleted; a caller that needs them gone must check first.
func (s *BedService) RemoveAbove(ctx context.Context, roomID uint, maxNumber int) (int, error) {
	res := s.DB.WithContext(ctx).
		Where("room_id = ? AND bed_number > ? AND status <> ?", roomID, maxNumber, models.StatusOccupied).
		Delete(&models.Bed{})
	if res.Error != nil {
		return 0, dbError(res.Error, "beds")
	}
	return int(res.RowsAffected), nil
}

// DeleteForRoom removes every bed of the room.
func (s *BedService) DeleteForRoom(ctx context.Context, roomID uint) error {
	if err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).Delete(&models.Bed{}).Error; err != nil {
		return dbError(err, "beds")
	}
	return nil
}

func (s *BedService) requireRoom(ctx context.Context, roomID uint) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Room{}).Where("id = ?", roomID).Count(&n).Error; err != nil {
		return dbError(err, "room")
	}
	if n == 0 {
		return NotFound("room %d not found", roomID)
	}
	return nil
}

// nextBedNumbers returns the count smallest positive numbers not in used.
func nextBedNumbers(used []int, count int) []int {
	sorted := append([]int(nil), used...)
	sort.Ints(sorted)
	out := make([]int, 0, count)
	candidate := 1
	i := 0
	for len(out) < count {
		for i < len(sorted) && sorted[i] < candidate {
			i++
		}
		if i < len(sorted) && sorted[i] == candidate {
			candidate++
			continue
		}
		out = append(out, candidate)
		candidate++
	}
	return out
}
