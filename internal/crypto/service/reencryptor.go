package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	"github.com/credfolio/fieldvault/internal/registry"
)

// Reencryptor runs background re-encryption after a key rotation: it walks
// every table with registered encrypted columns, decrypts each value under
// whatever key its envelope names, and rewrites it under the new active key.
//
// One job per scope runs at a time; starting a second is rejected with
// ErrRotationInProgress. Jobs are cancellable and survive the triggering
// request (they run on a detached context), and per-row failures are collected
// rather than aborting the whole job, so a single undecryptable value cannot
// wedge a rotation.
type Reencryptor struct {
	registry  *registry.Registry
	encryptor Encryptor
	store     RowStore
	logger    *slog.Logger
	batchSize int
	workers   int

	mu   sync.Mutex
	runs map[string]*rotationRun
}

type rotationRun struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	status cryptoDomain.RotationStatus
}

// NewReencryptor creates a re-encryption manager. batchSize bounds rows read
// per page and workers bounds concurrent tables.
func NewReencryptor(
	reg *registry.Registry,
	encryptor Encryptor,
	store RowStore,
	batchSize, workers int,
	logger *slog.Logger,
) *Reencryptor {
	if batchSize <= 0 {
		batchSize = 100
	}
	if workers <= 0 {
		workers = 1
	}
	return &Reencryptor{
		registry:  reg,
		encryptor: encryptor,
		store:     store,
		logger:    logger,
		batchSize: batchSize,
		workers:   workers,
		runs:      make(map[string]*rotationRun),
	}
}

// InProgress reports whether a re-encryption job is running for the scope.
func (r *Reencryptor) InProgress(scope string) bool {
	scope = cryptoDomain.NormalizeScope(scope)
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[scope]
	if !ok {
		return false
	}
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.status.InProgress
}

// Status returns the current or last finished job status for the scope.
func (r *Reencryptor) Status(scope string) (cryptoDomain.RotationStatus, bool) {
	scope = cryptoDomain.NormalizeScope(scope)
	r.mu.Lock()
	run, ok := r.runs[scope]
	r.mu.Unlock()
	if !ok {
		return cryptoDomain.RotationStatus{}, false
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	return run.status, true
}

// Cancel stops the running job for the scope. The job marks itself cancelled
// once its workers observe the context; rows already rewritten stay on the new
// key, which is safe because decryption always follows the envelope's key id.
func (r *Reencryptor) Cancel(scope string) error {
	scope = cryptoDomain.NormalizeScope(scope)
	r.mu.Lock()
	run, ok := r.runs[scope]
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: no re-encryption job for scope %q", cryptoDomain.ErrKeyNotFound, scope)
	}

	run.mu.Lock()
	inProgress := run.status.InProgress
	run.mu.Unlock()
	if !inProgress {
		return fmt.Errorf("%w: re-encryption job for scope %q already finished", cryptoDomain.ErrKeyNotFound, scope)
	}

	run.cancel()
	return nil
}

// Start launches a background re-encryption job moving the scope's data onto
// newKeyID. It returns immediately; progress is observable through Status.
func (r *Reencryptor) Start(scope string, newKeyID uuid.UUID) error {
	scope = cryptoDomain.NormalizeScope(scope)

	r.mu.Lock()
	if existing, ok := r.runs[scope]; ok {
		existing.mu.Lock()
		inProgress := existing.status.InProgress
		existing.mu.Unlock()
		if inProgress {
			r.mu.Unlock()
			return cryptoDomain.ErrRotationInProgress
		}
	}

	// Detached from the caller: rotation requests return long before the data
	// sweep finishes.
	ctx, cancel := context.WithCancel(context.Background())
	run := &rotationRun{
		cancel: cancel,
		status: cryptoDomain.RotationStatus{
			Scope:      scope,
			NewKeyID:   newKeyID,
			InProgress: true,
			StartedAt:  time.Now().UTC(),
		},
	}
	r.runs[scope] = run
	r.mu.Unlock()

	go r.run(ctx, run, scope, newKeyID)
	return nil
}

func (r *Reencryptor) run(ctx context.Context, run *rotationRun, scope string, newKeyID uuid.UUID) {
	logger := r.logger.With(
		slog.String("scope", scope),
		slog.String("new_key_id", newKeyID.String()),
	)
	logger.Info("re-encryption job started")

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers)

	tables := r.registry.Tables()
	for _, table := range tables {
		group.Go(func() error {
			updated, errs := r.reencryptTable(ctx, table, scope, newKeyID)

			run.mu.Lock()
			run.status.TablesProcessed = append(run.status.TablesProcessed, table)
			run.status.RecordsUpdated += updated
			run.status.Errors = append(run.status.Errors, errs...)
			if len(tables) > 0 {
				run.status.Progress = float64(len(run.status.TablesProcessed)) / float64(len(tables))
			}
			run.mu.Unlock()

			return ctx.Err()
		})
	}

	err := group.Wait()

	now := time.Now().UTC()
	run.mu.Lock()
	run.status.InProgress = false
	run.status.CompletedAt = &now
	run.status.Cancelled = err != nil
	status := run.status
	run.mu.Unlock()

	if status.Cancelled {
		logger.Warn("re-encryption job cancelled",
			slog.Int("tables_processed", len(status.TablesProcessed)),
			slog.Int("records_updated", status.RecordsUpdated))
		return
	}
	logger.Info("re-encryption job completed",
		slog.Int("tables_processed", len(status.TablesProcessed)),
		slog.Int("records_updated", status.RecordsUpdated),
		slog.Int("errors", len(status.Errors)))
}

// reencryptTable sweeps one table in keyset-paginated batches. Deterministic
// columns are skipped: their ciphertext derives from the scope sub-key, not
// from the rotated working key, and rewriting them would change nothing.
func (r *Reencryptor) reencryptTable(
	ctx context.Context,
	table, scope string,
	newKeyID uuid.UUID,
) (int, []string) {
	var columns []string
	for _, cfg := range r.registry.FieldsFor(table) {
		if !cfg.Deterministic {
			columns = append(columns, cfg.Column)
		}
	}
	if len(columns) == 0 {
		return 0, nil
	}

	var updated int
	var errs []string
	afterID := ""

	for {
		if ctx.Err() != nil {
			return updated, errs
		}

		rows, err := r.store.ListRows(ctx, table, scope, afterID, columns, r.batchSize)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: list rows after %q: %v", table, afterID, err))
			return updated, errs
		}
		if len(rows) == 0 {
			return updated, errs
		}

		for _, row := range rows {
			changed, err := r.reencryptRow(scope, newKeyID, row)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s[%s]: %v", table, row.ID, err))
				continue
			}
			if changed == nil {
				continue
			}
			if err := r.store.UpdateRow(ctx, table, row.ID, changed); err != nil {
				errs = append(errs, fmt.Sprintf("%s[%s]: update: %v", table, row.ID, err))
				continue
			}
			updated++
		}

		afterID = rows[len(rows)-1].ID
	}
}

// reencryptRow returns the columns that need rewriting, or nil when the row is
// already on the target key (or holds only empty/plaintext values).
func (r *Reencryptor) reencryptRow(scope string, newKeyID uuid.UUID, row Row) (map[string]string, error) {
	changed := make(map[string]string)
	target := newKeyID.String()

	for column, value := range row.Fields {
		if value == "" || !r.encryptor.IsEncrypted(value) {
			continue
		}
		envelope, err := cryptoDomain.DecodeEnvelope(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		if envelope.KeyID == target {
			continue
		}

		plaintext, err := r.encryptor.Decrypt(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		fresh, err := r.encryptor.Encrypt(plaintext, EncryptOptions{Scope: scope, KeyID: target})
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		changed[column] = fresh
	}

	if len(changed) == 0 {
		return nil, nil
	}
	return changed, nil
}
