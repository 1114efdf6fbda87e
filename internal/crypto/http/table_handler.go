package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/credfolio/fieldvault/internal/crypto/http/dto"
	"github.com/credfolio/fieldvault/internal/httputil"
	"github.com/credfolio/fieldvault/internal/interceptor"
	customValidation "github.com/credfolio/fieldvault/internal/validation"
)

// TableHandler handles bulk encryption administration over application tables.
type TableHandler struct {
	interceptor *interceptor.Interceptor
	logger      *slog.Logger
}

// NewTableHandler creates a new table handler.
func NewTableHandler(ic *interceptor.Interceptor, logger *slog.Logger) *TableHandler {
	return &TableHandler{interceptor: ic, logger: logger}
}

// EncryptHandler sweeps a table and encrypts plaintext values in registered
// columns. With dry_run set, counts what would change without writing.
// POST /v1/tables/:table/encrypt
func (h *TableHandler) EncryptHandler(c *gin.Context) {
	var req dto.EncryptTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.interceptor.EncryptExistingData(c.Request.Context(), c.Param("table"), req.Scope, req.DryRun)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, result)
}

// VerifyHandler reports a table's encryption coverage.
// GET /v1/tables/:table/verify?scope=S
func (h *TableHandler) VerifyHandler(c *gin.Context) {
	report, err := h.interceptor.VerifyTable(c.Request.Context(), c.Param("table"), c.Query("scope"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, report)
}
