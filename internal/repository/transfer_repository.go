package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"shield-backend/internal/models"
)

var ErrTransferNotFound = errors.New("transfer not found")

// recoverableStatuses are the statuses Recoverable() can be true for.
var recoverableStatuses = []models.TransferStatus{
	models.TransferStatusDeposited,
	models.TransferStatusWithdrawing,
	models.TransferStatusFailed,
}

// TransferRepository defines the interface for transfer checkpoint access
type TransferRepository interface {
	Create(ctx context.Context, record *models.TransferRecord) error
	Save(ctx context.Context, record *models.TransferRecord) error
	GetByID(ctx context.Context, id string) (*models.TransferRecord, error)
	ListRecoverable(ctx context.Context) ([]*models.TransferRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*models.TransferRecord, error)
}

// transferRepository implements TransferRepository on gorm
type transferRepository struct {
	db *gorm.DB
}

// NewTransferRepository creates a new gorm-backed TransferRepository
func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) Create(ctx context.Context, record *models.TransferRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *transferRepository) Save(ctx context.Context, record *models.TransferRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *transferRepository) GetByID(ctx context.Context, id string) (*models.TransferRecord, error) {
	var record models.TransferRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *transferRepository) ListRecoverable(ctx context.Context) ([]*models.TransferRecord, error) {
	var records []*models.TransferRecord
	err := r.db.WithContext(ctx).
		Where("status IN ? AND deposit_signature <> '' AND (withdraw_signature IS NULL OR withdraw_signature = '')", recoverableStatuses).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *transferRepository) ListRecent(ctx context.Context, limit int) ([]*models.TransferRecord, error) {
	var records []*models.TransferRecord
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// MemoryTransferRepository keeps checkpoints in process; used when no
// database is configured and in tests.
type MemoryTransferRepository struct {
	mu      sync.RWMutex
	records map[string]*models.TransferRecord
}

func NewMemoryTransferRepository() *MemoryTransferRepository {
	return &MemoryTransferRepository{records: make(map[string]*models.TransferRecord)}
}

func (m *MemoryTransferRepository) Create(ctx context.Context, record *models.TransferRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *MemoryTransferRepository) Save(ctx context.Context, record *models.TransferRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.UpdatedAt = time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *MemoryTransferRepository) GetByID(ctx context.Context, id string) (*models.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, ErrTransferNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryTransferRepository) ListRecoverable(ctx context.Context) ([]*models.TransferRecord, error) {
	all := m.snapshot()
	out := all[:0]
	for _, r := range all {
		if r.Recoverable() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryTransferRepository) ListRecent(ctx context.Context, limit int) ([]*models.TransferRecord, error) {
	all := m.snapshot()
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryTransferRepository) snapshot() []*models.TransferRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.TransferRecord, 0, len(m.records))
	for _, r := range m.records {
		cp := *r
		out = append(out, &cp)
	}
	return out
}
