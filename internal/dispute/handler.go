package dispute

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escrow-desk/escrow-portal/escrow-portal-backend/internal/auth"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/identity"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
)

// Handler handles HTTP requests for dispute operations
type Handler struct {
	service  *Service
	ingestor *Ingestor
	logger   *zap.Logger
}

// NewHandler creates a new dispute handler
func NewHandler(service *Service, ingestor *Ingestor, logger *zap.Logger) *Handler {
	return &Handler{service: service, ingestor: ingestor, logger: logger}
}

// RegisterRoutes registers dispute routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	disputes := router.Group("/disputes")
	{
		disputes.POST("", h.openDispute)
		disputes.GET("", h.listDisputes)
		disputes.GET("/:id", h.getDispute)
		disputes.PATCH("/:id", h.resolveDispute)
		disputes.POST("/:id/messages", h.postMessage)
		disputes.POST("/:id/evidence", h.postEvidence)
	}
}

type openDisputeRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
	Reason        string `json:"reason" binding:"required"`
	Statement     string `json:"statement"`
}

// openDispute handles POST /api/v1/disputes. The opener is always the
// authenticated principal.
func (h *Handler) openDispute(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req openDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.service.Open(c.Request.Context(), OpenInput{
		TransactionID: req.TransactionID,
		OpenedBy:      principal.ID,
		Reason:        req.Reason,
		Statement:     req.Statement,
	})
	if err != nil {
		h.respondError(c, "open dispute", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// listDisputes handles GET /api/v1/disputes
func (h *Handler) listDisputes(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var (
		disputes []Dispute
		err      error
	)
	if c.Query("scope") == "all" && h.isAdmin(c, principal) {
		disputes, err = h.service.ListAll(c.Request.Context())
	} else {
		disputes, err = h.service.ListByUser(c.Request.Context(), principal.ID)
	}
	if err != nil {
		h.respondError(c, "list disputes", err)
		return
	}
	c.JSON(http.StatusOK, disputes)
}

// getDispute handles GET /api/v1/disputes/:id
func (h *Handler) getDispute(c *gin.Context) {
	d, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "get dispute", err)
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "dispute not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// resolveDispute handles PATCH /api/v1/disputes/:id
func (h *Handler) resolveDispute(c *gin.Context) {
	var req ResolveInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Resolve(c.Request.Context(), c.Param("id"), req); err != nil {
		h.respondError(c, "resolve dispute", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type postMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// postMessage handles POST /api/v1/disputes/:id/messages
func (h *Handler) postMessage(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.service.AppendMessage(c.Request.Context(), c.Param("id"), principal.ID, req.Content)
	if err != nil {
		h.respondError(c, "append message", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// postEvidence handles POST /api/v1/disputes/:id/evidence. JSON bodies append
// statement or link evidence; multipart bodies upload a file first and append
// the resulting file reference.
func (h *Handler) postEvidence(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	disputeID := c.Param("id")

	if file, err := c.FormFile("file"); err == nil {
		reader, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer reader.Close()
		ref, err := h.ingestor.Ingest(c.Request.Context(), disputeID, file.Filename, reader)
		if err != nil {
			h.respondError(c, "ingest evidence file", err)
			return
		}
		evidence, err := h.service.AppendEvidence(c.Request.Context(), disputeID, Evidence{
			Type:       EvidenceFile,
			Content:    ref.URL,
			FileName:   ref.FileName,
			UploadedBy: principal.ID,
		})
		if err != nil {
			h.respondError(c, "append file evidence", err)
			return
		}
		c.JSON(http.StatusCreated, evidence)
		return
	}

	var req Evidence
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.UploadedBy = principal.ID
	evidence, err := h.service.AppendEvidence(c.Request.Context(), disputeID, req)
	if err != nil {
		h.respondError(c, "append evidence", err)
		return
	}
	c.JSON(http.StatusCreated, evidence)
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
		h.logger.Error("dispute handler failure", zap.String("action", action), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
