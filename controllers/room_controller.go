package controllers

import (
	"net/http"

	"github.com/3bube/Dormhub-sub000/services"
	"github.com/3bube/Dormhub-sub000/utils"

	"github.com/gin-gonic/gin"
)

type RoomController struct {
	Rooms *services.RoomService
}

func NewRoomController(rooms *services.RoomService) *RoomController {
	return &RoomController{Rooms: rooms}
}

func filterFromQuery(c *gin.Context) services.RoomFilter {
	return services.RoomFilter{
		Status:   c.Query("status"),
		Type:     c.Query("type"),
		Building: c.Query("building"),
	}
}

// ListRooms (GET /api/rooms)
func (ctrl *RoomController) ListRooms(c *gin.Context) {
	rooms, err := ctrl.Rooms.ListRooms(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, rooms)
}

// AvailableRooms (GET /api/rooms/available)
func (ctrl *RoomController) AvailableRooms(c *gin.Context) {
	rooms, err := ctrl.Rooms.AvailableRooms(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, rooms)
}

// GetRoom (GET /api/rooms/:id)
func (ctrl *RoomController) GetRoom(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	room, err := ctrl.Rooms.GetRoomWithBeds(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, room)
}

// ListBeds (GET /api/rooms/:id/beds)
func (ctrl *RoomController) ListBeds(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	beds, err := ctrl.Rooms.Beds.ListBeds(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, beds)
}

// CreateRoom (POST /api/rooms)
func (ctrl *RoomController) CreateRoom(c *gin.Context) {
	var in services.CreateRoomInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	room, err := ctrl.Rooms.CreateRoom(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, room)
}

// UpdateRoom (PATCH|PUT /api/rooms/:id)
func (ctrl *RoomController) UpdateRoom(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.UpdateRoomInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	room, err := ctrl.Rooms.UpdateRoom(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, room)
}

type statusPayload struct {
	Status string `json:"status" binding:"required"`
}

// SetRoomStatus (PATCH /api/rooms/:id/status)
func (ctrl *RoomController) SetRoomStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var p statusPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "status is required")
		return
	}
	room, err := ctrl.Rooms.SetStatus(c.Request.Context(), id, p.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, room)
}

// SetBedStatus (PATCH /api/beds/:id/status)
func (ctrl *RoomController) SetBedStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var p statusPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "status is required")
		return
	}
	bed, err := ctrl.Rooms.SetBedStatus(c.Request.Context(), id, p.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, bed)
}

// DeleteRoom (DELETE /api/rooms/:id)
func (ctrl *RoomController) DeleteRoom(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := ctrl.Rooms.DeleteRoom(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Room deleted successfully",
	})
}
