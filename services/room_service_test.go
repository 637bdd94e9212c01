package services_test

import (
	"context"
	"testing"

	"github.com/3bube/Dormhub-sub000/models"
	"github.com/3bube/Dormhub-sub000/services"
	"github.com/3bube/Dormhub-sub000/testutil"
)

func TestCreateRoomCreatesBeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.rooms.CreateRoom(ctx, services.CreateRoomInput{
		RoomNumber: " B-201 ",
		Floor:      "2",
		Building:   testutil.Ptr("North"),
		Capacity:   3,
		Type:       "triple",
		Amenities:  []string{"desk", " wifi", "desk", ""},
		Price:      testutil.Ptr(120.5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.RoomNumber != "B-201" {
		t.Fatalf("expected trimmed room number, got %q", room.RoomNumber)
	}
	if room.Status != models.StatusAvailable || room.OccupiedCount != 0 {
		t.Fatalf("expected fresh available room, got %s/%d", room.Status, room.OccupiedCount)
	}
	if len(room.Amenities) != 2 || room.Amenities[0] != "desk" || room.Amenities[1] != "wifi" {
		t.Fatalf("expected amenities [desk wifi], got %v", room.Amenities)
	}

	got := f.reloadRoom(t, room.ID)
	if len(got.Beds) != 3 {
		t.Fatalf("expected 3 beds, got %d", len(got.Beds))
	}
	for i, b := range got.Beds {
		if b.BedNumber != i+1 || b.Status != models.StatusAvailable {
			t.Fatalf("bed %d: got number %d status %s", i, b.BedNumber, b.Status)
		}
	}
	if got.Building == nil || *got.Building != "North" {
		t.Fatalf("expected building North, got %v", got.Building)
	}
	if len(got.Amenities) != 2 {
		t.Fatalf("expected amenities to round trip, got %v", got.Amenities)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   services.CreateRoomInput
	}{
		{"missing number", services.CreateRoomInput{Capacity: 2}},
		{"zero capacity", services.CreateRoomInput{RoomNumber: "C-1"}},
		{"negative capacity", services.CreateRoomInput{RoomNumber: "C-1", Capacity: -1}},
		{"bad status", services.CreateRoomInput{RoomNumber: "C-1", Capacity: 1, Status: "closed"}},
		{"negative price", services.CreateRoomInput{RoomNumber: "C-1", Capacity: 1, Price: testutil.Ptr(-1.0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.rooms.CreateRoom(ctx, tc.in)
			wantKind(t, err, services.ErrValidation)
		})
	}

	var n int64
	f.db.Model(&models.Room{}).Count(&n)
	if n != 0 {
		t.Fatalf("expected no rooms after rejected creates, got %d", n)
	}
}

func TestCreateRoomDuplicateNumber(t *testing.T) {
	f := newFixture(t)
	f.room(t, "C-2", 1)

	_, err := f.rooms.CreateRoom(context.Background(), services.CreateRoomInput{RoomNumber: "C-2", Capacity: 2})
	wantKind(t, err, services.ErrConflict)

	var beds int64
	f.db.Model(&models.Bed{}).Count(&beds)
	if beds != 1 {
		t.Fatalf("expected the failed create to leave no beds, got %d", beds)
	}
}

func TestUpdateRoomGrowsBedPool(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "D-1", 2)

	updated, err := f.rooms.UpdateRoom(context.Background(), room.ID, services.UpdateRoomInput{Capacity: testutil.Ptr(4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Capacity != 4 {
		t.Fatalf("expected capacity 4, got %d", updated.Capacity)
	}
	got := f.reloadRoom(t, room.ID)
	if len(got.Beds) != 4 || got.Beds[2].BedNumber != 3 || got.Beds[3].BedNumber != 4 {
		t.Fatalf("expected beds 1..4, got %+v", got.Beds)
	}
}

func TestUpdateRoomShrinkRemovesFreeBeds(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "ada")
	room := f.room(t, "D-2", 4)
	f.allocate(t, st, room, room.Beds[0])

	updated, err := f.rooms.UpdateRoom(context.Background(), room.ID, services.UpdateRoomInput{Capacity: testutil.Ptr(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Capacity != 2 || updated.OccupiedCount != 1 {
		t.Fatalf("expected capacity 2 with 1 occupied, got %d/%d", updated.Capacity, updated.OccupiedCount)
	}
	got := f.reloadRoom(t, room.ID)
	if len(got.Beds) != 2 || got.Beds[0].BedNumber != 1 || got.Beds[1].BedNumber != 2 {
		t.Fatalf("expected beds 1 and 2 to remain, got %+v", got.Beds)
	}

	// shrinking to exactly the occupied count fills the room
	updated, err = f.rooms.UpdateRoom(context.Background(), room.ID, services.UpdateRoomInput{Capacity: testutil.Ptr(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != models.StatusOccupied {
		t.Fatalf("expected occupied status after shrink, got %s", updated.Status)
	}
}

func TestUpdateRoomCapacityBelowOccupiedRejected(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "D-3", 3)
	f.allocate(t, f.student(t, "ada"), room, room.Beds[0])
	f.allocate(t, f.student(t, "bob"), room, room.Beds[1])

	_, err := f.rooms.UpdateRoom(context.Background(), room.ID, services.UpdateRoomInput{
		Capacity: testutil.Ptr(1),
		Type:     testutil.Ptr("single"),
	})
	wantKind(t, err, services.ErrCapacityConflict)

	got := f.reloadRoom(t, room.ID)
	if got.Capacity != 3 || got.Type != "shared" {
		t.Fatalf("expected room untouched, got capacity %d type %s", got.Capacity, got.Type)
	}
	if len(got.Beds) != 3 || got.OccupiedCount != 2 {
		t.Fatalf("expected 3 beds with 2 occupied, got %d/%d", len(got.Beds), got.OccupiedCount)
	}
}

func TestUpdateRoomPartialFields(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "D-4", 1)
	ctx := context.Background()

	updated, err := f.rooms.UpdateRoom(ctx, room.ID, services.UpdateRoomInput{
		Floor:     testutil.Ptr("3"),
		Amenities: &[]string{"balcony"},
		Price:     testutil.Ptr(99.0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Floor != "3" || updated.Type != "shared" || updated.Price == nil || *updated.Price != 99 {
		t.Fatalf("unexpected room after update: %+v", updated)
	}
	if len(updated.Amenities) != 1 || updated.Amenities[0] != "balcony" {
		t.Fatalf("expected amenities [balcony], got %v", updated.Amenities)
	}

	_, err = f.rooms.UpdateRoom(ctx, room.ID, services.UpdateRoomInput{RoomNumber: testutil.Ptr(" ")})
	wantKind(t, err, services.ErrValidation)
	_, err = f.rooms.UpdateRoom(ctx, room.ID, services.UpdateRoomInput{Capacity: testutil.Ptr(0)})
	wantKind(t, err, services.ErrValidation)
	_, err = f.rooms.UpdateRoom(ctx, room.ID+7, services.UpdateRoomInput{Floor: testutil.Ptr("1")})
	wantKind(t, err, services.ErrNotFound)
}

func TestSetRoomStatus(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "D-5", 2)
	ctx := context.Background()

	updated, err := f.rooms.SetStatus(ctx, room.ID, "Maintenance")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != models.StatusMaintenance {
		t.Fatalf("expected maintenance, got %s", updated.Status)
	}
	_, err = f.rooms.SetStatus(ctx, room.ID, "closed")
	wantKind(t, err, services.ErrValidation)
}

func TestSetBedStatus(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "D-6", 2)
	ctx := context.Background()

	bed, err := f.rooms.SetBedStatus(ctx, room.Beds[0].ID, models.StatusMaintenance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bed.Status != models.StatusMaintenance {
		t.Fatalf("expected maintenance bed, got %s", bed.Status)
	}

	_, err = f.rooms.SetBedStatus(ctx, room.Beds[0].ID, models.StatusOccupied)
	wantKind(t, err, services.ErrValidation)

	f.allocate(t, f.student(t, "ada"), room, room.Beds[1])
	_, err = f.rooms.SetBedStatus(ctx, room.Beds[1].ID, models.StatusMaintenance)
	wantKind(t, err, services.ErrConflict)

	// no bed is free now
	if got := f.reloadRoom(t, room.ID); got.Status != models.StatusOccupied {
		t.Fatalf("expected occupied room, got %s", got.Status)
	}
	if _, err := f.rooms.SetBedStatus(ctx, room.Beds[0].ID, models.StatusAvailable); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.reloadRoom(t, room.ID); got.Status != models.StatusAvailable {
		t.Fatalf("expected available room once a bed is back, got %s", got.Status)
	}
}

func TestDeleteRoom(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "E-1", 2)
	ctx := context.Background()
	st := f.student(t, "ada")
	alloc := f.allocate(t, st, room, room.Beds[0])

	wantKind(t, f.rooms.DeleteRoom(ctx, room.ID), services.ErrConflict)

	if _, err := f.ledger.EndAllocation(ctx, alloc.ID); err != nil {
		t.Fatalf("end allocation: %v", err)
	}
	if err := f.rooms.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.rooms.GetRoom(ctx, room.ID)
	wantKind(t, err, services.ErrNotFound)

	var beds int64
	f.db.Model(&models.Bed{}).Where("room_id = ?", room.ID).Count(&beds)
	if beds != 0 {
		t.Fatalf("expected beds to be deleted, got %d", beds)
	}

	// history keeps the room number
	recent, err := f.ledger.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].RoomNumber != "E-1" {
		t.Fatalf("expected history for E-1, got %+v", recent)
	}

	wantKind(t, f.rooms.DeleteRoom(ctx, room.ID), services.ErrNotFound)
}

func TestAvailableRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	open := f.room(t, "F-1", 3)
	full := f.room(t, "F-2", 1)
	closed := f.room(t, "F-3", 2)
	f.allocate(t, f.student(t, "ada"), open, open.Beds[0])
	f.allocate(t, f.student(t, "bob"), full, full.Beds[0])
	if _, err := f.rooms.SetStatus(ctx, closed.ID, models.StatusMaintenance); err != nil {
		t.Fatalf("set status: %v", err)
	}

	rooms, err := f.rooms.AvailableRooms(ctx, services.RoomFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("expected only F-1, got %+v", rooms)
	}
	if rooms[0].RoomNumber != "F-1" || rooms[0].AvailableBeds != 2 {
		t.Fatalf("expected F-1 with 2 free beds, got %s with %d", rooms[0].RoomNumber, rooms[0].AvailableBeds)
	}

	rooms, err = f.rooms.AvailableRooms(ctx, services.RoomFilter{Type: "suite"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rooms) != 0 {
		t.Fatalf("expected no suites, got %+v", rooms)
	}
}

func TestListRoomsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.room(t, "G-2", 1)
	f.room(t, "G-1", 1)
	r3 := f.room(t, "G-3", 1)
	if _, err := f.rooms.SetStatus(ctx, r3.ID, models.StatusMaintenance); err != nil {
		t.Fatalf("set status: %v", err)
	}

	all, err := f.rooms.ListRooms(ctx, services.RoomFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 || all[0].RoomNumber != "G-1" {
		t.Fatalf("expected 3 rooms ordered by number, got %+v", all)
	}
	maint, err := f.rooms.ListRooms(ctx, services.RoomFilter{Status: models.StatusMaintenance})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(maint) != 1 || maint[0].ID != r3.ID {
		t.Fatalf("expected only G-3, got %+v", maint)
	}
}

func TestRenameRoomRewritesStudentCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", 2)
	current := f.student(t, "ada")
	former := f.student(t, "bob")
	f.allocate(t, current, room, room.Beds[0])
	old := f.allocate(t, former, room, room.Beds[1])
	if _, err := f.ledger.EndAllocation(ctx, old.ID); err != nil {
		t.Fatalf("end: %v", err)
	}

	updated, err := f.rooms.UpdateRoom(ctx, room.ID, services.UpdateRoomInput{RoomNumber: testutil.Ptr("999")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.RoomNumber != "999" {
		t.Fatalf("expected room 999, got %q", updated.RoomNumber)
	}
	if st := f.reloadStudent(t, current.ID); st.RoomNumber != "999" {
		t.Fatalf("expected active student cache 999, got %q", st.RoomNumber)
	}
	if st := f.reloadStudent(t, former.ID); st.RoomNumber != "" {
		t.Fatalf("expected former student cache to stay empty, got %q", st.RoomNumber)
	}

	cur, err := f.ledger.CurrentForStudent(ctx, current.ID)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur.Room == nil || cur.Room.RoomNumber != "999" {
		t.Fatalf("expected current room 999, got %+v", cur.Room)
	}
}

func TestShrinkRenumbersWithinCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "102", 3)
	f.allocate(t, f.student(t, "ada"), room, room.Beds[2])

	_, err := f.rooms.UpdateRoom(ctx, room.ID, services.UpdateRoomInput{Capacity: testutil.Ptr(2)})
	wantKind(t, err, services.ErrCapacityConflict)
	if got := f.reloadRoom(t, room.ID); got.Capacity != 3 || len(got.Beds) != 3 {
		t.Fatalf("expected room untouched, got capacity %d with %d beds", got.Capacity, len(got.Beds))
	}

	// the occupied bed is the highest number, so only a shrink to 3 or more is allowed
	updated, err := f.rooms.UpdateRoom(ctx, room.ID, services.UpdateRoomInput{Capacity: testutil.Ptr(3)})
	if err != nil || updated.Capacity != 3 {
		t.Fatalf("expected no-op capacity update, got %+v %v", updated, err)
	}
}
