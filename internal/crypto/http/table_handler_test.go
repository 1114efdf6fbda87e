package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credfolio/fieldvault/internal/crypto/http/dto"
	cryptoService "github.com/credfolio/fieldvault/internal/crypto/service"
	"github.com/credfolio/fieldvault/internal/fieldenc"
	"github.com/credfolio/fieldvault/internal/interceptor"
	"github.com/credfolio/fieldvault/internal/registry"
)

// tableRowStore is a minimal in-memory RowStore backing the bulk endpoints.
type tableRowStore struct {
	mu   sync.Mutex
	rows []cryptoService.Row
}

func (s *tableRowStore) ListRows(_ context.Context, _, _, afterID string, columns []string, limit int) ([]cryptoService.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []cryptoService.Row
	for _, row := range s.rows {
		if row.ID <= afterID {
			continue
		}
		fields := make(map[string]string, len(columns))
		for _, column := range columns {
			fields[column] = row.Fields[column]
		}
		out = append(out, cryptoService.Row{ID: row.ID, Fields: fields})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *tableRowStore) UpdateRow(_ context.Context, _, id string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, row := range s.rows {
		if row.ID == id {
			for column, value := range fields {
				s.rows[i].Fields[column] = value
			}
		}
	}
	return nil
}

func (s *tableRowStore) CountRows(_ context.Context, _, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

func (s *tableRowStore) value(id, column string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id {
			return row.Fields[column]
		}
	}
	return ""
}

func setupTableHandler(t *testing.T, store cryptoService.RowStore) (*TableHandler, *cryptoService.EncryptionService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.DiscardHandler)
	svc, err := cryptoService.NewEncryptionService("test-secret", "test-salt", cryptoService.NewAEADManager(), logger)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	reg, err := registry.New([]registry.FieldConfig{
		{Table: "clients", Column: "bank_account", Sensitivity: registry.SensitivityHigh},
	}, nil)
	require.NoError(t, err)

	fields := fieldenc.NewFieldEncryptor(reg, svc)
	ic := interceptor.New(reg, fields, svc, store, 10, logger)
	return NewTableHandler(ic, logger), svc
}

func seededTableStore(svc *cryptoService.EncryptionService) *tableRowStore {
	encrypted, _ := svc.Encrypt("already-encrypted", cryptoService.EncryptOptions{})
	return &tableRowStore{rows: []cryptoService.Row{
		{ID: "c1", Fields: map[string]string{"bank_account": "BR01-2345", "organization_id": "org-1"}},
		{ID: "c2", Fields: map[string]string{"bank_account": encrypted, "organization_id": "org-1"}},
		{ID: "c3", Fields: map[string]string{"bank_account": "", "organization_id": "org-1"}},
	}}
}

func TestTableHandler_EncryptHandler(t *testing.T) {
	t.Run("dry run counts without writing", func(t *testing.T) {
		store := &tableRowStore{}
		handler, svc := setupTableHandler(t, store)
		store.rows = seededTableStore(svc).rows

		c, w := createTestContext(http.MethodPost, "/v1/tables/clients/encrypt",
			dto.EncryptTableRequest{DryRun: true})
		c.Params = gin.Params{{Key: "table", Value: "clients"}}
		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var result interceptor.BulkResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, "clients", result.Table)
		assert.True(t, result.DryRun)
		assert.Equal(t, 3, result.Scanned)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 2, result.Skipped)
		// The plaintext row is untouched.
		assert.Equal(t, "BR01-2345", store.value("c1", "bank_account"))
	})

	t.Run("sweep rewrites plaintext rows", func(t *testing.T) {
		store := &tableRowStore{}
		handler, svc := setupTableHandler(t, store)
		store.rows = seededTableStore(svc).rows

		c, w := createTestContext(http.MethodPost, "/v1/tables/clients/encrypt",
			dto.EncryptTableRequest{})
		c.Params = gin.Params{{Key: "table", Value: "clients"}}
		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, svc.IsEncrypted(store.value("c1", "bank_account")))

		decrypted, err := svc.Decrypt(store.value("c1", "bank_account"))
		require.NoError(t, err)
		assert.Equal(t, "BR01-2345", decrypted)
	})

	t.Run("unregistered table", func(t *testing.T) {
		handler, _ := setupTableHandler(t, &tableRowStore{})

		c, w := createTestContext(http.MethodPost, "/v1/tables/sessions/encrypt",
			dto.EncryptTableRequest{})
		c.Params = gin.Params{{Key: "table", Value: "sessions"}}
		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_input")
	})

	t.Run("scope with surrounding whitespace fails validation", func(t *testing.T) {
		handler, _ := setupTableHandler(t, &tableRowStore{})

		c, w := createTestContext(http.MethodPost, "/v1/tables/clients/encrypt",
			dto.EncryptTableRequest{Scope: " org-1"})
		c.Params = gin.Params{{Key: "table", Value: "clients"}}
		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "validation_error")
	})
}

func TestTableHandler_VerifyHandler(t *testing.T) {
	t.Run("reports coverage", func(t *testing.T) {
		store := &tableRowStore{}
		handler, svc := setupTableHandler(t, store)
		store.rows = seededTableStore(svc).rows

		c, w := createTestContext(http.MethodGet, "/v1/tables/clients/verify", nil)
		c.Params = gin.Params{{Key: "table", Value: "clients"}}
		handler.VerifyHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var report interceptor.TableReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, 3, report.TotalRecords)
		assert.Equal(t, 2, report.EncryptedRecords)
		assert.Equal(t, 1, report.UnencryptedRecords)
		assert.Equal(t, 1, report.PlaintextByColumn["bank_account"])
	})

	t.Run("unregistered table", func(t *testing.T) {
		handler, _ := setupTableHandler(t, &tableRowStore{})

		c, w := createTestContext(http.MethodGet, "/v1/tables/sessions/verify", nil)
		c.Params = gin.Params{{Key: "table", Value: "sessions"}}
		handler.VerifyHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
