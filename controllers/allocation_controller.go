package controllers

import (
	"net/http"
	"strconv"

	"github.com/3bube/Dormhub-sub000/middleware"
	"github.com/3bube/Dormhub-sub000/services"
	"github.com/3bube/Dormhub-sub000/utils"

	"github.com/gin-gonic/gin"
)

// AllocatePayload is the request body of POST /api/allocations. Dates are
// "YYYY-MM-DD" or RFC3339.
type AllocatePayload struct {
	StudentID     uint   `json:"studentId" binding:"required"`
	RoomID        uint   `json:"roomId" binding:"required"`
	BedID         uint   `json:"bedId" binding:"required"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	PaymentStatus string `json:"paymentStatus"`
}

type UpdateAllocationPayload struct {
	EndDate       *string `json:"endDate"`
	PaymentStatus *string `json:"paymentStatus"`
}

type AllocationController struct {
	Ledger *services.AllocationService
}

func NewAllocationController(ledger *services.AllocationService) *AllocationController {
	return &AllocationController{Ledger: ledger}
}

// Allocate (POST /api/allocations)
func (ctrl *AllocationController) Allocate(c *gin.Context) {
	var p AllocatePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "studentId, roomId and bedId are required: "+err.Error())
		return
	}
	start, err := utils.ParseDate(p.StartDate)
	if err != nil {
		badRequest(c, "startDate: "+err.Error())
		return
	}
	end, err := utils.ParseDate(p.EndDate)
	if err != nil {
		badRequest(c, "endDate: "+err.Error())
		return
	}

	alloc, err := ctrl.Ledger.Allocate(c.Request.Context(), services.AllocateInput{
		StudentID:     p.StudentID,
		RoomID:        p.RoomID,
		BedID:         p.BedID,
		StartDate:     start,
		EndDate:       end,
		PaymentStatus: p.PaymentStatus,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, alloc)
}

// UpdateAllocation (PATCH /api/allocations/:id)
func (ctrl *AllocationController) UpdateAllocation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var p UpdateAllocationPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	var in services.UpdateAllocationInput
	in.PaymentStatus = p.PaymentStatus
	if p.EndDate != nil {
		end, err := utils.ParseDate(*p.EndDate)
		if err != nil {
			badRequest(c, "endDate: "+err.Error())
			return
		}
		if end == nil {
			badRequest(c, "endDate cannot be cleared")
			return
		}
		in.EndDate = end
	}
	alloc, err := ctrl.Ledger.UpdateAllocation(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, alloc)
}

// EndAllocation (POST /api/allocations/:id/end)
func (ctrl *AllocationController) EndAllocation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	alloc, err := ctrl.Ledger.EndAllocation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Allocation ended",
		"data":    alloc,
	})
}

// RecentAllocations (GET /api/allocations/recent?limit=N)
func (ctrl *AllocationController) RecentAllocations(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	list, err := ctrl.Ledger.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}

// StudentAllocation (GET /api/students/:id/allocation). Students may only
// read their own.
func (ctrl *AllocationController) StudentAllocation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ident, _ := middleware.CurrentIdentity(c)
	if !ident.IsAdmin() && ident.UserID != id {
		respondError(c, services.ErrForbidden)
		return
	}
	ctrl.writeCurrent(c, id)
}

// MyAllocation (GET /api/me/allocation)
func (ctrl *AllocationController) MyAllocation(c *gin.Context) {
	ident, _ := middleware.CurrentIdentity(c)
	ctrl.writeCurrent(c, ident.UserID)
}

func (ctrl *AllocationController) writeCurrent(c *gin.Context, studentID uint) {
	alloc, err := ctrl.Ledger.CurrentForStudent(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, alloc)
}

// Reconcile (POST /api/rooms/:id/reconcile)
func (ctrl *AllocationController) Reconcile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := ctrl.Ledger.Reconcile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, res)
}
