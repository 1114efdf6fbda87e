// Package http provides HTTP handlers for key management and bulk encryption
// administration. These endpoints are an internal operator surface: key
// material never appears in any response.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	"github.com/credfolio/fieldvault/internal/crypto/http/dto"
	cryptoService "github.com/credfolio/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/credfolio/fieldvault/internal/crypto/usecase"
	"github.com/credfolio/fieldvault/internal/httputil"
	customValidation "github.com/credfolio/fieldvault/internal/validation"
)

// actorHeader identifies the operator performing a key management call for
// the audit trail. Authentication itself is handled at the gateway.
const actorHeader = "X-Actor"

// KeyHandler handles HTTP requests for key management operations.
type KeyHandler struct {
	keyUseCase cryptoUseCase.KeyUseCase
	encryptor  cryptoService.Encryptor
	logger     *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(
	keyUseCase cryptoUseCase.KeyUseCase,
	encryptor cryptoService.Encryptor,
	logger *slog.Logger,
) *KeyHandler {
	return &KeyHandler{
		keyUseCase: keyUseCase,
		encryptor:  encryptor,
		logger:     logger,
	}
}

func actorFrom(c *gin.Context) string {
	if actor := c.GetHeader(actorHeader); actor != "" {
		return actor
	}
	return "api"
}

// GenerateHandler creates a new working key.
// POST /v1/keys
func (h *KeyHandler) GenerateHandler(c *gin.Context) {
	var req dto.GenerateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	keyType, err := cryptoDomain.ParseKeyType(req.KeyType)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	alg, err := cryptoDomain.ParseAlgorithm(req.Algorithm)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	key, err := h.keyUseCase.GenerateKey(c.Request.Context(), req.Scope, keyType, alg, actorFrom(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapKeyToResponse(key))
}

// ListHandler lists keys without material, optionally filtered by scope.
// GET /v1/keys?scope=S&offset=N&limit=N
func (h *KeyHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	keys, err := h.keyUseCase.ListKeys(c.Request.Context(), c.Query("scope"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	total := len(keys)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, dto.ListKeysResponse{
		Keys:   dto.MapKeysToResponse(keys[offset:end]),
		Offset: offset,
		Limit:  limit,
		Total:  total,
	})
}

// GetHandler retrieves one key by id.
// GET /v1/keys/:id
func (h *KeyHandler) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid key id"), h.logger)
		return
	}

	key, err := h.keyUseCase.GetKey(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key))
}

// RotateHandler rotates the active key of a (scope, key type).
// POST /v1/keys/rotate
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	var req dto.RotateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	keyType, err := cryptoDomain.ParseKeyType(req.KeyType)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	alg, err := cryptoDomain.ParseAlgorithm(req.Algorithm)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	result, err := h.keyUseCase.RotateKey(c.Request.Context(), req.Scope, keyType, alg, actorFrom(c), req.Reencrypt)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotationToResponse(result))
}

// RevokeHandler permanently revokes a key.
// POST /v1/keys/:id/revoke
func (h *KeyHandler) RevokeHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid key id"), h.logger)
		return
	}

	var req dto.RevokeKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.keyUseCase.RevokeKey(c.Request.Context(), id, actorFrom(c), req.Reason); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// RotationStatusHandler reports background re-encryption progress for a scope.
// GET /v1/keys/rotation-status?scope=S
func (h *KeyHandler) RotationStatusHandler(c *gin.Context) {
	status, ok := h.keyUseCase.RotationStatus(c.Query("scope"))
	if !ok {
		httputil.HandleErrorGin(c, cryptoDomain.ErrKeyNotFound, h.logger)
		return
	}
	c.JSON(http.StatusOK, status)
}

// RotationCancelHandler cancels a running re-encryption job.
// POST /v1/keys/rotation-cancel?scope=S
func (h *KeyHandler) RotationCancelHandler(c *gin.Context) {
	if err := h.keyUseCase.CancelRotation(c.Query("scope")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Status(http.StatusAccepted)
}

// VerifyHandler runs a non-mutating key integrity check.
// GET /v1/keys/:id/verify
func (h *KeyHandler) VerifyHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid key id"), h.logger)
		return
	}

	integrity, err := h.keyUseCase.VerifyKey(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, integrity)
}

// StatsHandler aggregates key lifecycle counters.
// GET /v1/keys/stats
func (h *KeyHandler) StatsHandler(c *gin.Context) {
	stats, err := h.keyUseCase.Stats(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExpiringHandler lists keys expiring within the given number of days.
// GET /v1/keys/expiring?days=N (default 30)
func (h *KeyHandler) ExpiringHandler(c *gin.Context) {
	days := 30
	if daysStr := c.Query("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 1 {
			httputil.HandleBadRequestGin(c, fmt.Errorf("invalid days parameter: must be a positive integer"), h.logger)
			return
		}
		days = parsed
	}

	keys, err := h.keyUseCase.ExpiringKeys(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys": dto.MapKeysToResponse(keys)})
}

// AuditLogHandler lists recent key lifecycle events for a scope.
// GET /v1/keys/audit?scope=S&limit=N
func (h *KeyHandler) AuditLogHandler(c *gin.Context) {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 500 {
			httputil.HandleBadRequestGin(c, fmt.Errorf("invalid limit parameter: must be between 1 and 500"), h.logger)
			return
		}
		limit = parsed
	}

	events, err := h.keyUseCase.AuditLog(c.Request.Context(), c.Query("scope"), limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": dto.MapAuditEventsToResponse(events)})
}

// ExportHandler serializes all keys into a password-protected backup blob.
// POST /v1/keys/export
func (h *KeyHandler) ExportHandler(c *gin.Context) {
	var req dto.ExportKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	backup, err := h.keyUseCase.ExportKeys(c.Request.Context(), req.Password, actorFrom(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ExportKeysResponse{Backup: backup})
}

// ImportHandler restores keys from a backup blob.
// POST /v1/keys/import
func (h *KeyHandler) ImportHandler(c *gin.Context) {
	var req dto.ImportKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.keyUseCase.ImportKeys(c.Request.Context(), req.Backup, req.Password, actorFrom(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapImportToResponse(result))
}

// StatusHandler reports whether field encryption is active. A false value
// means the service is running in degraded pass-through mode and sensitive
// fields are being stored as plaintext.
// GET /v1/encryption/status
func (h *KeyHandler) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, dto.EncryptionStatusResponse{
		Enabled:    h.encryptor.Enabled(),
		KeysLoaded: h.encryptor.KeyChain().Len(),
	})
}
