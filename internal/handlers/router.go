package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-registry/internal/config"
	"github.com/SAP-F-2025/lms-registry/internal/services"
	"github.com/SAP-F-2025/lms-registry/internal/utils"
)

type HandlerManager struct {
	serviceManager services.ServiceManager
	userHandler    *UserHandler
	courseHandler  *CourseHandler
	identity       *IdentityMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
) *HandlerManager {
	return &HandlerManager{
		serviceManager: serviceManager,
		userHandler:    NewUserHandler(serviceManager.Users(), logger),
		courseHandler:  NewCourseHandler(serviceManager.Registry(), serviceManager.Export(), logger),
		identity:       NewIdentityMiddleware(casdoorConfig),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(hm.identity.ResolveCaller())
	{
		users := v1.Group("/users")
		{
			users.POST("", hm.identity.RequireCaller(), hm.userHandler.RegisterUser)
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/me", hm.identity.RequireCaller(), hm.userHandler.GetMe)
			users.GET("/:identity/lecturer", hm.userHandler.IsLecturer)
		}

		courses := v1.Group("/courses")
		{
			courses.POST("", hm.identity.RequireCaller(), hm.courseHandler.CreateCourse)
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.POST("/:id/exams", hm.identity.RequireCaller(), hm.courseHandler.CreateExam)
			courses.GET("/:id/exams", hm.courseHandler.ListExams)
			courses.GET("/:id/exams/:index/address", hm.courseHandler.GetExamAddress)
		}

		v1.GET("/export", hm.courseHandler.ExportWorkbook)
	}
}

// HealthCheck reports liveness together with the store status
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":           status,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"service":          "lms-registry",
		"registry_address": hm.serviceManager.Registry().RegistryAddress(),
	})
}
