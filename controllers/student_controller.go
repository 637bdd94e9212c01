package controllers

import (
	"net/http"

	"github.com/3bube/Dormhub-sub000/models"
	"github.com/3bube/Dormhub-sub000/services"
	"github.com/3bube/Dormhub-sub000/utils"

	"github.com/gin-gonic/gin"
)

type StudentController struct {
	Students *services.StudentService
}

func NewStudentController(svc *services.StudentService) *StudentController {
	return &StudentController{Students: svc}
}

type createStudentPayload struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Role     string `json:"role"`
}

// CreateStudent (POST /api/students)
func (ctrl *StudentController) CreateStudent(c *gin.Context) {
	var p createStudentPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "Invalid student payload: "+err.Error())
		return
	}
	student := models.Student{FullName: p.FullName, Email: p.Email, Role: p.Role}
	if err := ctrl.Students.Create(c.Request.Context(), &student); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, student)
}
