package identity

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
)

// principalResolver decouples the handler from the auth middleware package,
// which imports this one for the Principal type.
type principalResolver func(c *gin.Context) (Principal, bool)

// Handler handles HTTP requests for profile operations
type Handler struct {
	service   *Service
	principal principalResolver
	logger    *zap.Logger
}

// NewHandler creates a new identity handler
func NewHandler(service *Service, principal func(c *gin.Context) (Principal, bool), logger *zap.Logger) *Handler {
	return &Handler{service: service, principal: principal, logger: logger}
}

// RegisterRoutes registers profile routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("", h.listUsers)
		users.GET("/me", h.me)
		users.POST("/me", h.createProfile)
		users.PUT("/me", h.updateProfile)
		users.PATCH("/:id/kyc", h.setKYCStatus)
	}
}

// listUsers handles GET /api/v1/users, the admin roster view.
func (h *Handler) listUsers(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, "list users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// me handles GET /api/v1/users/me. The response falls back to the identity
// provider's view when the profile document is missing or partial.
func (h *Handler) me(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	user, err := h.service.ResolveWithFallback(c.Request.Context(), principal)
	if err != nil {
		h.respondError(c, "resolve profile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type createProfileRequest struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// createProfile handles POST /api/v1/users/me, the signup write.
func (h *Handler) createProfile(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.service.CreateProfile(c.Request.Context(), principal.ID, CreateProfileInput{
		Email: req.Email,
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		h.respondError(c, "create profile", err)
		return
	}
	c.Status(http.StatusCreated)
}

// updateProfile handles PUT /api/v1/users/me
func (h *Handler) updateProfile(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req struct {
		Name      *string `json:"name"`
		Phone     *string `json:"phone"`
		AvatarURL *string `json:"avatarUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.service.UpdateProfile(c.Request.Context(), principal.ID, UpdateProfileInput{
		Name:      req.Name,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		h.respondError(c, "update profile", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// setKYCStatus handles PATCH /api/v1/users/:id/kyc, recording an
// adjudication outcome. Admin only.
func (h *Handler) setKYCStatus(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var req struct {
		Status KYCStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetKYCStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		h.respondError(c, "set kyc status", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// requireAdmin rejects the request unless the principal resolves to an admin
// profile. Returns false when it has already written the response.
func (h *Handler) requireAdmin(c *gin.Context) bool {
	principal, ok := h.principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return false
	}
	actor, err := h.service.Resolve(c.Request.Context(), principal.ID)
	if err != nil {
		h.respondError(c, "resolve actor", err)
		return false
	}
	if actor == nil || actor.Role != RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return false
	}
	return true
}

func (h *Handler) respondError(c *gin.Context, action string, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("identity handler failure", zap.String("action", action), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
