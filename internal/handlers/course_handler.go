package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
	"github.com/SAP-F-2025/lms-registry/internal/services"
	"github.com/SAP-F-2025/lms-registry/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CourseHandler struct {
	BaseHandler
	registry services.CourseExamRegistry
	export   services.ExportService
}

func NewCourseHandler(registry services.CourseExamRegistry, export services.ExportService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler: NewBaseHandler(logger),
		registry:    registry,
		export:      export,
	}
}

type ExamAddressResponse struct {
	CourseID  uint               `json:"course_id"`
	ExamIndex int                `json:"exam_index"`
	Address   models.ExamAddress `json:"address"`
}

// CreateCourse creates a course owned by the caller
// @Summary Create course
// @Tags courses
// @Accept json
// @Produce json
// @Param course body services.CreateCourseRequest true "Course data"
// @Success 201 {object} services.CourseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Kind:    string(services.KindInvalidArgument),
			Details: err.Error(),
		})
		return
	}

	caller := GetCallerIdentity(c)
	h.LogRequest(c, "Creating course", "caller", caller)

	course, err := h.registry.CreateCourse(h.requestContext(c), caller, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// ListCourses lists courses in id order
// @Param owner query string false "Owner identity"
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	filters := repositories.CourseFilters{
		Limit:  h.parseIntQuery(c, "limit", 0),
		Offset: h.parseIntQuery(c, "offset", 0),
	}
	if owner := c.Query("owner"); owner != "" {
		filters.OwnerIdentity = &owner
	}

	courses, err := h.registry.ListCourses(h.requestContext(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	course, err := h.registry.GetCourse(h.requestContext(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// CreateExam appends an exam to a course owned by the caller
// @Summary Create exam
// @Tags courses
// @Param id path uint true "Course ID"
// @Param exam body services.CreateExamRequest true "Exam data"
// @Success 201 {object} services.ExamResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/exams [post]
func (h *CourseHandler) CreateExam(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Kind:    string(services.KindInvalidArgument),
			Details: err.Error(),
		})
		return
	}

	caller := GetCallerIdentity(c)
	h.LogRequest(c, "Creating exam", "caller", caller, "course_id", id)

	exam, err := h.registry.CreateExam(h.requestContext(c), caller, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// @Router /courses/{id}/exams [get]
func (h *CourseHandler) ListExams(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	exams, err := h.registry.ListExams(h.requestContext(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exams": exams})
}

// GetExamAddress resolves the deterministic address of one exam
// @Router /courses/{id}/exams/{index}/address [get]
func (h *CourseHandler) GetExamAddress(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	index, ok := h.parseIndexParam(c, "index")
	if !ok {
		return
	}

	addr, err := h.registry.GetExamAddress(h.requestContext(c), id, index)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExamAddressResponse{CourseID: id, ExamIndex: index, Address: addr})
}

// ExportWorkbook streams an .xlsx snapshot of the registry
// @Router /export [get]
func (h *CourseHandler) ExportWorkbook(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.export.ExportWorkbook(h.requestContext(c), &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("lms-registry-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
