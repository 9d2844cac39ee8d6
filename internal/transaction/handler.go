package transaction

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escrow-desk/escrow-portal/escrow-portal-backend/internal/auth"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/identity"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
)

// Handler handles HTTP requests for transaction operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new transaction handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers transaction routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	txns := router.Group("/transactions")
	{
		txns.POST("", h.createTransaction)
		txns.GET("", h.listTransactions)
		txns.GET("/:id", h.getTransaction)
		txns.PATCH("/:id/status", h.setStatus)
	}
}

// createTransaction handles POST /api/v1/transactions
func (h *Handler) createTransaction(c *gin.Context) {
	var req CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "create transaction", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// listTransactions handles GET /api/v1/transactions. Admins see the full
// ledger; everyone else sees transactions they participate in.
func (h *Handler) listTransactions(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var (
		txns []Transaction
		err  error
	)
	if c.Query("scope") == "all" && h.isAdmin(c, principal) {
		txns, err = h.service.ListAll(c.Request.Context())
	} else {
		txns, err = h.service.ListByParticipant(c.Request.Context(), principal.ID)
	}
	if err != nil {
		h.respondError(c, "list transactions", err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

// getTransaction handles GET /api/v1/transactions/:id
func (h *Handler) getTransaction(c *gin.Context) {
	txn, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "get transaction", err)
		return
	}
	if txn == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	c.JSON(http.StatusOK, txn)
}

type setStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// setStatus handles PATCH /api/v1/transactions/:id/status
func (h *Handler) setStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		h.respondError(c, "set transaction status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func (h *Handler) isAdmin(c *gin.Context, principal identity.Principal) bool {
	user, err := h.service.identity.Resolve(c.Request.Context(), principal.ID)
	if err != nil || user == nil {
		return false
	}
	return user.Role == identity.RoleAdmin
}

func (h *Handler) respondError(c *gin.Context, action string, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("transaction handler failure", zap.String("action", action), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
