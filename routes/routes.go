package routes

import (
	"net/http"
	"time"

	"github.com/3bube/Dormhub-sub000/controllers"
	"github.com/3bube/Dormhub-sub000/metrics"
	"github.com/3bube/Dormhub-sub000/middleware"
	"github.com/3bube/Dormhub-sub000/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options carries the router's non-controller dependencies.
type Options struct {
	JWTSecret   string
	CorsOrigins []string
	Logger      zerolog.Logger
}

func SetupRouter(
	rc *controllers.RoomController,
	ac *controllers.AllocationController,
	sc *controllers.StudentController,
	opts Options,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(opts.Logger), middleware.Metrics())

	origins := opts.CorsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	metrics.Register()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Authenticate(opts.JWTSecret))
	admin := middleware.RequireRole(models.RoleAdministrator)
	{
		rooms := api.Group("/rooms")
		{
			// public reads
			rooms.GET("/available", rc.AvailableRooms)
			rooms.GET("/:id", rc.GetRoom)
			rooms.GET("/:id/beds", rc.ListBeds)

			rooms.GET("", admin, rc.ListRooms)
			rooms.POST("", admin, rc.CreateRoom)
			rooms.PATCH("/:id", admin, rc.UpdateRoom)
			rooms.PUT("/:id", admin, rc.UpdateRoom)
			rooms.PATCH("/:id/status", admin, rc.SetRoomStatus)
			rooms.DELETE("/:id", admin, rc.DeleteRoom)
			rooms.POST("/:id/reconcile", admin, ac.Reconcile)
		}

		beds := api.Group("/beds")
		{
			beds.PATCH("/:id/status", admin, rc.SetBedStatus)
		}

		allocations := api.Group("/allocations", admin)
		{
			allocations.POST("", ac.Allocate)
			allocations.GET("/recent", ac.RecentAllocations)
			allocations.PATCH("/:id", ac.UpdateAllocation)
			allocations.POST("/:id/end", ac.EndAllocation)
		}

		students := api.Group("/students")
		{
			students.POST("", admin, sc.CreateStudent)
			students.GET("/:id/allocation", middleware.RequireAuth(), ac.StudentAllocation)
		}

		api.GET("/me/allocation", middleware.RequireAuth(), ac.MyAllocation)
	}

	return r
}
