package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/3bube/Dormhub-sub000/models"
	"github.com/3bube/Dormhub-sub000/services"
	"github.com/3bube/Dormhub-sub000/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	rooms    *services.RoomService
	students *services.StudentService
	ledger   *services.AllocationService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	rooms := services.NewRoomService(db, services.NewRoomLocks())
	students := services.NewStudentService(db)
	f := &fixture{
		db:       db,
		rooms:    rooms,
		students: students,
		ledger:   services.NewAllocationService(db, rooms, students),
		now:      time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC),
	}
	f.ledger.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) student(t *testing.T, name string) models.Student {
	t.Helper()
	st := models.Student{FullName: name, Email: fmt.Sprintf("%s@campus.test", name)}
	if err := f.students.Create(context.Background(), &st); err != nil {
		t.Fatalf("create student %s: %v", name, err)
	}
	return st
}

func (f *fixture) room(t *testing.T, number string, capacity int) models.Room {
	t.Helper()
	room, err := f.rooms.CreateRoom(context.Background(), services.CreateRoomInput{
		RoomNumber: number,
		Floor:      "1",
		Capacity:   capacity,
		Type:       "shared",
	})
	if err != nil {
		t.Fatalf("create room %s: %v", number, err)
	}
	return room
}

func (f *fixture) allocate(t *testing.T, st models.Student, room models.Room, bed models.Bed) models.Allocation {
	t.Helper()
	alloc, err := f.ledger.Allocate(context.Background(), services.AllocateInput{
		StudentID: st.ID,
		RoomID:    room.ID,
		BedID:     bed.ID,
	})
	if err != nil {
		t.Fatalf("allocate %s to bed %d: %v", st.FullName, bed.BedNumber, err)
	}
	return alloc
}

func (f *fixture) reloadRoom(t *testing.T, id uint) models.Room {
	t.Helper()
	room, err := f.rooms.GetRoomWithBeds(context.Background(), id)
	if err != nil {
		t.Fatalf("reload room %d: %v", id, err)
	}
	return room
}

func (f *fixture) reloadStudent(t *testing.T, id uint) models.Student {
	t.Helper()
	st, err := f.students.GetStudent(context.Background(), id)
	if err != nil {
		t.Fatalf("reload student %d: %v", id, err)
	}
	return st
}

func (f *fixture) activeCount(t *testing.T, bedID uint) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&models.Allocation{}).Where("bed_id = ? AND active = ?", bedID, true).Count(&n).Error; err != nil {
		t.Fatalf("count allocations: %v", err)
	}
	return n
}

func wantKind(t *testing.T, err error, target error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", target)
	}
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v (kind %s)", target, err, services.KindOf(err))
	}
}

// ledgerCount reads dormhub_ledger_allocations_total for one label pair from
// the default registry.
func ledgerCount(t *testing.T, operation, outcome string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != "dormhub_ledger_allocations_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["operation"] == operation && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
