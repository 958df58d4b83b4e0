package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-registry/internal/repositories"
	"github.com/SAP-F-2025/lms-registry/internal/services"
	"github.com/SAP-F-2025/lms-registry/internal/utils"
)

type UserHandler struct {
	BaseHandler
	users services.UserDirectory
}

func NewUserHandler(users services.UserDirectory, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		users:       users,
	}
}

type LecturerStatusResponse struct {
	Identity   string `json:"identity"`
	IsLecturer bool   `json:"is_lecturer"`
}

// RegisterUser registers or updates the caller's own profile
// @Summary Register caller
// @Tags users
// @Accept json
// @Produce json
// @Param user body services.RegisterUserRequest true "Profile"
// @Success 200 {object} services.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users [post]
func (h *UserHandler) RegisterUser(c *gin.Context) {
	var req services.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Kind:    string(services.KindInvalidArgument),
			Details: err.Error(),
		})
		return
	}

	caller := GetCallerIdentity(c)
	h.LogRequest(c, "Registering user", "identity", caller)

	user, err := h.users.RegisterUser(h.requestContext(c), caller, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetMe returns the caller's profile
// @Router /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.users.GetUser(h.requestContext(c), GetCallerIdentity(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// IsLecturer reports the lecturer flag; unknown identities are not lecturers
// @Router /users/{identity}/lecturer [get]
func (h *UserHandler) IsLecturer(c *gin.Context) {
	identity := c.Param("identity")

	ok, err := h.users.IsLecturer(h.requestContext(c), identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, LecturerStatusResponse{Identity: identity, IsLecturer: ok})
}

// ListUsers lists registered users
// @Param lecturers query bool false "Only lecturers"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Router /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	filters := repositories.UserFilters{
		LecturersOnly: c.Query("lecturers") == "true",
		Limit:         h.parseIntQuery(c, "limit", 0),
		Offset:        h.parseIntQuery(c, "offset", 0),
	}

	users, err := h.users.ListUsers(h.requestContext(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
