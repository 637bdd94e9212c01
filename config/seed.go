package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/3bube/Dormhub-sub000/models"
	"github.com/3bube/Dormhub-sub000/services"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

type seedFile struct {
	Students []seedStudent `toml:"students"`
	Rooms    []seedRoom    `toml:"rooms"`
}

type seedStudent struct {
	FullName string `toml:"full_name"`
	Email    string `toml:"email"`
	Role     string `toml:"role"`
}

type seedRoom struct {
	RoomNumber string   `toml:"room_number"`
	Floor      string   `toml:"floor"`
	Building   string   `toml:"building"`
	Capacity   int      `toml:"capacity"`
	Type       string   `toml:"type"`
	Amenities  []string `toml:"amenities"`
	Price      *float64 `toml:"price"`
	Status     string   `toml:"status"`
}

// SeedResult counts what a seed pass created and skipped.
type SeedResult struct {
	StudentsCreated int
	StudentsSkipped int
	RoomsCreated    int
	RoomsSkipped    int
}

// SeedFromFile loads students and rooms from a TOML file. Rows that already
// exist (same email or room number) are skipped, so the file can be applied
// on every start.
func SeedFromFile(ctx context.Context, path string, rooms *services.RoomService, students *services.StudentService) (SeedResult, error) {
	var res SeedResult
	var doc seedFile
	meta, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return res, fmt.Errorf("load seed file: %w", err)
	}
	for _, key := range meta.Undecoded() {
		log.Warn().Str("key", key.String()).Str("file", path).Msg("unknown seed key ignored")
	}

	for _, st := range doc.Students {
		if _, err := students.FindByEmail(ctx, st.Email); err == nil {
			res.StudentsSkipped++
			continue
		} else if !errors.Is(err, services.ErrNotFound) {
			return res, err
		}
		row := models.Student{FullName: st.FullName, Email: st.Email, Role: st.Role}
		if err := students.Create(ctx, &row); err != nil {
			return res, fmt.Errorf("seed student %q: %w", st.Email, err)
		}
		res.StudentsCreated++
	}

	for _, r := range doc.Rooms {
		var building *string
		if r.Building != "" {
			b := r.Building
			building = &b
		}
		_, err := rooms.CreateRoom(ctx, services.CreateRoomInput{
			RoomNumber: r.RoomNumber,
			Floor:      r.Floor,
			Building:   building,
			Capacity:   r.Capacity,
			Type:       r.Type,
			Amenities:  r.Amenities,
			Price:      r.Price,
			Status:     r.Status,
		})
		if errors.Is(err, services.ErrConflict) {
			res.RoomsSkipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed room %q: %w", r.RoomNumber, err)
		}
		res.RoomsCreated++
	}

	log.Info().
		Int("students_created", res.StudentsCreated).
		Int("students_skipped", res.StudentsSkipped).
		Int("rooms_created", res.RoomsCreated).
		Int("rooms_skipped", res.RoomsSkipped).
		Msg("seed applied")
	return res, nil
}
