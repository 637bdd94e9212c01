package services

import (
	"context"
	"strings"

	"github.com/3bube/Dormhub-sub000/models"

	"gorm.io/gorm"
)

// StudentStore is the slice of the student record store the ledger needs:
// lookups and the cached room number.
type StudentStore interface {
	GetStudent(ctx context.Context, id uint) (models.Student, error)
	SetRoomNumber(ctx context.Context, id uint, roomNumber string) error
	// WithTx binds the store to the caller's transaction.
	WithTx(tx *gorm.DB) StudentStore
}

type StudentService struct {
	DB *gorm.DB
}

func NewStudentService(db *gorm.DB) *StudentService {
	return &StudentService{DB: db}
}

var _ StudentStore = (*StudentService)(nil)

func (s *StudentService) WithTx(tx *gorm.DB) StudentStore {
	return &StudentService{DB: tx}
}

// Create registers a student record. Role defaults to student.
func (s *StudentService) Create(ctx context.Context, student *models.Student) error {
	student.FullName = strings.TrimSpace(student.FullName)
	student.Email = strings.ToLower(strings.TrimSpace(student.Email))
	if student.FullName == "" {
		return Validation("fullName is required")
	}
	if student.Email == "" {
		return Validation("email is required")
	}
	if student.Role == "" {
		student.Role = models.RoleStudent
	}
	if student.Role != models.RoleStudent && student.Role != models.RoleAdministrator {
		return Validation("unknown role %q", student.Role)
	}
	// the cache is only written by the ledger
	student.RoomNumber = ""
	if err := s.DB.WithContext(ctx).Create(student).Error; err != nil {
		return dbError(err, "student")
	}
	return nil
}

func (s *StudentService) GetStudent(ctx context.Context, id uint) (models.Student, error) {
	var st models.Student
	if err := s.DB.WithContext(ctx).First(&st, id).Error; err != nil {
		return st, dbError(err, "student")
	}
	return st, nil
}

func (s *StudentService) FindByEmail(ctx context.Context, email string) (models.Student, error) {
	var st models.Student
	err := s.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&st).Error
	if err != nil {
		return st, dbError(err, "student")
	}
	return st, nil
}

// SetRoomNumber overwrites the cached room number. Writing the current value
// again is allowed.
func (s *StudentService) SetRoomNumber(ctx context.Context, id uint, roomNumber string) error {
	if _, err := s.GetStudent(ctx, id); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Model(&models.Student{}).
		Where("id = ?", id).
		Update("room_number", roomNumber).Error; err != nil {
		return dbError(err, "student")
	}
	return nil
}
