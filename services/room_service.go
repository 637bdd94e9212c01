package services

import (
	"context"
	"strings"

	"github.com/3bube/Dormhub-sub000/metrics"
	"github.com/3bube/Dormhub-sub000/models"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomService is the room catalog. Room occupancy fields are projections of
// bed rows and are only written through refreshProjection.
type RoomService struct {
	DB    *gorm.DB
	Beds  *BedService
	Locks *RoomLocks
}

func NewRoomService(db *gorm.DB, locks *RoomLocks) *RoomService {
	if locks == nil {
		locks = NewRoomLocks()
	}
	return &RoomService{DB: db, Beds: NewBedService(db), Locks: locks}
}

// WithTx returns a copy bound to tx. The copy shares the lock table; callers
// must already hold the room lock.
func (s *RoomService) WithTx(tx *gorm.DB) *RoomService {
	return &RoomService{DB: tx, Beds: s.Beds.WithTx(tx), Locks: s.Locks}
}

type CreateRoomInput struct {
	RoomNumber string   `json:"roomNumber"`
	Floor      string   `json:"floor"`
	Building   *string  `json:"building"`
	Capacity   int      `json:"capacity"`
	Type       string   `json:"type"`
	Amenities  []string `json:"amenities"`
	Price      *float64 `json:"price"`
	Status     string   `json:"status"`
}

// UpdateRoomInput is a partial update; nil fields are left alone.
type UpdateRoomInput struct {
	RoomNumber *string   `json:"roomNumber"`
	Floor      *string   `json:"floor"`
	Building   *string   `json:"building"`
	Capacity   *int      `json:"capacity"`
	Type       *string   `json:"type"`
	Amenities  *[]string `json:"amenities"`
	Price      *float64  `json:"price"`
	Status     *string   `json:"status"`
}

type RoomFilter struct {
	Status   string
	Type     string
	Building string
}

// CreateRoom validates the input and creates the room together with its
// capacity beds, numbered from 1.
func (s *RoomService) CreateRoom(ctx context.Context, in CreateRoomInput) (models.Room, error) {
	room := models.Room{
		RoomNumber: strings.TrimSpace(in.RoomNumber),
		Floor:      strings.TrimSpace(in.Floor),
		Building:   trimPtr(in.Building),
		Capacity:   in.Capacity,
		Type:       strings.TrimSpace(in.Type),
		Amenities:  datatypes.NewJSONSlice(normalizeAmenities(in.Amenities)),
		Price:      in.Price,
		Status:     strings.ToLower(strings.TrimSpace(in.Status)),
	}
	if room.RoomNumber == "" {
		return room, Validation("roomNumber is required")
	}
	if room.Capacity <= 0 {
		return room, Validation("capacity must be positive, got %d", room.Capacity)
	}
	if room.Status == "" {
		room.Status = models.StatusAvailable
	}
	if !models.ValidStatus(room.Status) {
		return room, Validation("unknown room status %q", room.Status)
	}
	if room.Price != nil && *room.Price < 0 {
		return room, Validation("price must not be negative")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return dbError(err, "room "+room.RoomNumber)
		}
		beds, err := s.Beds.WithTx(tx).CreateBeds(ctx, room.ID, room.Capacity, 1)
		if err != nil {
			return err
		}
		room.Beds = beds
		return nil
	})
	if err != nil {
		metrics.RecordRoomChange("create", string(KindOf(err)))
		return models.Room{}, err
	}
	metrics.RecordRoomChange("create", "ok")
	log.Info().Uint("room_id", room.ID).Str("room_number", room.RoomNumber).Int("capacity", room.Capacity).Msg("room created")
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id uint) (models.Room, error) {
	var room models.Room
	if err := s.DB.WithContext(ctx).First(&room, id).Error; err != nil {
		return room, dbError(err, "room")
	}
	return room, nil
}

// GetRoomWithBeds loads a room and its beds ordered by number.
func (s *RoomService) GetRoomWithBeds(ctx context.Context, id uint) (models.Room, error) {
	var room models.Room
	err := s.DB.WithContext(ctx).
		Preload("Beds", func(db *gorm.DB) *gorm.DB { return db.Order("bed_number ASC") }).
		First(&room, id).Error
	if err != nil {
		return room, dbError(err, "room")
	}
	return room, nil
}

func (s *RoomService) ListRooms(ctx context.Context, f RoomFilter) ([]models.Room, error) {
	q := s.DB.WithContext(ctx).Model(&models.Room{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Building != "" {
		q = q.Where("building = ?", f.Building)
	}
	rooms := []models.Room{}
	if err := q.Order("room_number ASC").Find(&rooms).Error; err != nil {
		return nil, dbError(err, "rooms")
	}
	return rooms, nil
}

// AvailableRooms lists rooms whose status is available and that have at least
// one available bed. The bed count is joined at read time.
func (s *RoomService) AvailableRooms(ctx context.Context, f RoomFilter) ([]models.AvailableRoom, error) {
	q := s.DB.WithContext(ctx).Model(&models.Room{}).
		Select("rooms.*, COUNT(beds.id) AS available_beds").
		Joins("JOIN beds ON beds.room_id = rooms.id AND beds.status = ?", models.StatusAvailable).
		Where("rooms.status = ?", models.StatusAvailable)
	if f.Type != "" {
		q = q.Where("rooms.type = ?", f.Type)
	}
	if f.Building != "" {
		q = q.Where("rooms.building = ?", f.Building)
	}
	out := []models.AvailableRoom{}
	if err := q.Group("rooms.id").
		Having("COUNT(beds.id) > 0").
		Order("rooms.room_number ASC").
		Scan(&out).Error; err != nil {
		return nil, dbError(err, "rooms")
	}
	return out, nil
}

// UpdateRoom applies a partial update. Capacity changes are checked against
// the occupied beds and resize the bed pool in the same transaction.
func (s *RoomService) UpdateRoom(ctx context.Context, id uint, in UpdateRoomInput) (models.Room, error) {
	updates := map[string]interface{}{}
	if in.RoomNumber != nil {
		n := strings.TrimSpace(*in.RoomNumber)
		if n == "" {
			return models.Room{}, Validation("roomNumber must not be empty")
		}
		updates["room_number"] = n
	}
	if in.Floor != nil {
		updates["floor"] = strings.TrimSpace(*in.Floor)
	}
	if in.Building != nil {
		updates["building"] = trimPtr(in.Building)
	}
	if in.Type != nil {
		updates["type"] = strings.TrimSpace(*in.Type)
	}
	if in.Amenities != nil {
		updates["amenities"] = datatypes.NewJSONSlice(normalizeAmenities(*in.Amenities))
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return models.Room{}, Validation("price must not be negative")
		}
		updates["price"] = *in.Price
	}
	if in.Status != nil {
		st := strings.ToLower(strings.TrimSpace(*in.Status))
		if !models.ValidStatus(st) {
			return models.Room{}, Validation("unknown room status %q", st)
		}
		updates["status"] = st
	}
	if in.Capacity != nil && *in.Capacity <= 0 {
		return models.Room{}, Validation("capacity must be positive, got %d", *in.Capacity)
	}

	unlock := s.Locks.Lock(id)
	defer unlock()

	var room models.Room
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, id).Error; err != nil {
			return dbError(err, "room")
		}
		beds := s.Beds.WithTx(tx)

		var counts BedCounts
		resize := in.Capacity != nil && *in.Capacity != room.Capacity
		if resize {
			var err error
			if counts, err = beds.Counts(ctx, id); err != nil {
				return err
			}
			if *in.Capacity < counts.Occupied {
				return CapacityConflict("room %s has %d occupied beds; capacity cannot drop to %d",
					room.RoomNumber, counts.Occupied, *in.Capacity)
			}
			highest, err := beds.MaxOccupiedNumber(ctx, id)
			if err != nil {
				return err
			}
			if highest > *in.Capacity {
				return CapacityConflict("room %s: bed %d is occupied; capacity cannot drop to %d",
					room.RoomNumber, highest, *in.Capacity)
			}
			updates["capacity"] = *in.Capacity
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.Room{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return dbError(err, "room")
			}
		}
		if n, ok := updates["room_number"].(string); ok && n != room.RoomNumber {
			if err := renameStudentCaches(ctx, tx, id, n); err != nil {
				return err
			}
		}

		if resize {
			// Bed numbers stay within 1..capacity: drop the beds above the new
			// capacity, then fill any numbers still missing below it.
			newCap := *in.Capacity
			removed, err := beds.RemoveAbove(ctx, id, newCap)
			if err != nil {
				return err
			}
			if remaining := counts.Total - removed; remaining < newCap {
				if _, err := beds.AppendBeds(ctx, id, newCap-remaining); err != nil {
					return err
				}
			}
			if err := s.WithTx(tx).refreshProjection(ctx, id, policyDerive); err != nil {
				return err
			}
		}
		return tx.First(&room, id).Error
	})
	if err != nil {
		metrics.RecordRoomChange("update", string(KindOf(err)))
		return models.Room{}, dbError(err, "room")
	}
	metrics.RecordRoomChange("update", "ok")
	log.Info().Uint("room_id", id).Int("capacity", room.Capacity).Str("status", room.Status).Msg("room updated")
	return room, nil
}

// SetStatus is the plain room status setter.
func (s *RoomService) SetStatus(ctx context.Context, id uint, status string) (models.Room, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	return s.UpdateRoom(ctx, id, UpdateRoomInput{Status: &status})
}

// SetBedStatus is the administrative bed transition (maintenance and back).
// Occupied beds are only released by ending their allocation.
func (s *RoomService) SetBedStatus(ctx context.Context, bedID uint, status string) (models.Bed, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != models.StatusAvailable && status != models.StatusMaintenance {
		return models.Bed{}, Validation("bed status can only be set to %q or %q by hand", models.StatusAvailable, models.StatusMaintenance)
	}
	bed, err := s.Beds.GetBed(ctx, bedID)
	if err != nil {
		return bed, err
	}

	unlock := s.Locks.Lock(bed.RoomID)
	defer unlock()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		beds := s.Beds.WithTx(tx)
		current, err := beds.GetBed(ctx, bedID)
		if err != nil {
			return err
		}
		if current.Status == models.StatusOccupied {
			return Conflict("bed %d is occupied; end its allocation first", bedID)
		}
		if err := beds.SetStatus(ctx, bedID, status); err != nil {
			return err
		}
		if err := s.WithTx(tx).refreshProjection(ctx, current.RoomID, policyDerive); err != nil {
			return err
		}
		bed, err = beds.GetBed(ctx, bedID)
		return err
	})
	if err != nil {
		return models.Bed{}, err
	}
	log.Info().Uint("bed_id", bedID).Uint("room_id", bed.RoomID).Str("status", status).Msg("bed status set")
	return bed, nil
}

// DeleteRoom removes a room and its beds. Rooms with an occupied bed are kept.
func (s *RoomService) DeleteRoom(ctx context.Context, id uint) error {
	unlock := s.Locks.Lock(id)
	defer unlock()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, id).Error; err != nil {
			return dbError(err, "room")
		}
		beds := s.Beds.WithTx(tx)
		occupied, err := beds.CountByStatus(ctx, id, models.StatusOccupied)
		if err != nil {
			return err
		}
		if occupied > 0 {
			return Conflict("room %s has %d occupied beds", room.RoomNumber, occupied)
		}
		if err := beds.DeleteForRoom(ctx, id); err != nil {
			return err
		}
		if err := tx.Delete(&models.Room{}, id).Error; err != nil {
			return dbError(err, "room")
		}
		return nil
	})
	if err != nil {
		metrics.RecordRoomChange("delete", string(KindOf(err)))
		return err
	}
	metrics.RecordRoomChange("delete", "ok")
	log.Info().Uint("room_id", id).Msg("room deleted")
	return nil
}

// renameStudentCaches rewrites the cached room number of every student
// actively allocated to the room.
func renameStudentCaches(ctx context.Context, tx *gorm.DB, roomID uint, roomNumber string) error {
	active := tx.Model(&models.Allocation{}).
		Select("student_id").
		Where("room_id = ? AND active = ?", roomID, true)
	if err := tx.WithContext(ctx).Model(&models.Student{}).
		Where("id IN (?)", active).
		Update("room_number", roomNumber).Error; err != nil {
		return dbError(err, "student")
	}
	return nil
}

type statusPolicy int

const (
	// policyFill marks a room occupied once no bed is free.
	policyFill statusPolicy = iota
	// policyRelease reverts an occupied room to available, whatever the
	// other beds look like.
	policyRelease
	// policyDerive moves the status both ways from the bed counts.
	policyDerive
)

func nextRoomStatus(current string, c BedCounts, p statusPolicy) string {
	if current == models.StatusMaintenance {
		return current
	}
	switch p {
	case policyFill:
		if c.Available == 0 && current == models.StatusAvailable {
			return models.StatusOccupied
		}
	case policyRelease:
		if current == models.StatusOccupied {
			return models.StatusAvailable
		}
	case policyDerive:
		if c.Available == 0 && c.Occupied > 0 {
			if current == models.StatusFull {
				return current
			}
			return models.StatusOccupied
		}
		if c.Available > 0 && (current == models.StatusOccupied || current == models.StatusFull) {
			return models.StatusAvailable
		}
	}
	return current
}

// refreshProjection recomputes occupiedCount from the bed rows and applies
// the status policy. Callers run it inside the transaction that changed the beds.
func (s *RoomService) refreshProjection(ctx context.Context, roomID uint, p statusPolicy) error {
	var room models.Room
	if err := s.DB.WithContext(ctx).Select("id", "status").First(&room, roomID).Error; err != nil {
		return dbError(err, "room")
	}
	counts, err := s.Beds.Counts(ctx, roomID)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Model(&models.Room{}).Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"occupied_count": counts.Occupied,
			"status":         nextRoomStatus(room.Status, counts, p),
		}).Error; err != nil {
		return dbError(err, "room")
	}
	return nil
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func normalizeAmenities(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
