package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// RemoteStore receives debounced snapshot writes. Sync returns the remote id
// the snapshot is stored under.
type RemoteStore interface {
	Sync(ctx context.Context, snap Snapshot) (string, error)
}

// NopRemote is used when no database is configured.
type NopRemote struct{}

func (NopRemote) Sync(_ context.Context, snap Snapshot) (string, error) { return snap.ID, nil }

type tournamentRow struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Code      string    `gorm:"size:16;index"`
	Name      string    `gorm:"not null"`
	State     []byte    `gorm:"type:jsonb;not null"`
	IsDeleted bool      `gorm:"not null;default:false"`
	UpdatedAt time.Time `gorm:"index"`
}

func (tournamentRow) TableName() string { return "tournaments" }

// PostgresStore is the saved-tournaments database.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects and migrates the tournaments table.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresStore(db)
}

func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&tournamentRow{}); err != nil {
		return nil, fmt.Errorf("migrate tournaments: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Sync upserts the snapshot. A snapshot without an id gets a new row; an
// existing row is overwritten and undeleted.
func (p *PostgresStore) Sync(ctx context.Context, snap Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	state, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("%w: encode: %v", ErrRemoteSync, err)
	}

	name := snap.Name
	if name == "" {
		name = "Untitled Tournament"
	}
	row := tournamentRow{
		ID:        snap.ID,
		Code:      snap.Code,
		Name:      name,
		State:     state,
		UpdatedAt: time.Now().UTC(),
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "name", "state", "is_deleted", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteSync, err)
	}
	return snap.ID, nil
}

// List returns saved tournaments that are not deleted, most recent first.
func (p *PostgresStore) List(ctx context.Context) ([]Summary, error) {
	var rows []tournamentRow
	err := p.db.WithContext(ctx).
		Select("id", "code", "name", "updated_at").
		Where("is_deleted = ?", false).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(rows))
	for i, r := range rows {
		out[i] = Summary{ID: r.ID, Code: r.Code, Name: r.Name, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// Get loads a saved tournament. The returned snapshot carries its id.
func (p *PostgresStore) Get(ctx context.Context, id string) (Snapshot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Snapshot{}, ErrNotFound
	}
	var row tournamentRow
	err := p.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	if row.IsDeleted {
		return Snapshot{}, ErrDeleted
	}

	var snap Snapshot
	if err := json.Unmarshal(row.State, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode tournament %s: %w", id, err)
	}
	snap.ID = row.ID
	return snap, nil
}

func (p *PostgresStore) SoftDelete(ctx context.Context, id string) error {
	return p.setDeleted(ctx, id, true)
}

func (p *PostgresStore) Restore(ctx context.Context, id string) error {
	return p.setDeleted(ctx, id, false)
}

func (p *PostgresStore) setDeleted(ctx context.Context, id string, deleted bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res := p.db.WithContext(ctx).
		Model(&tournamentRow{}).
		Where("id = ?", id).
		Update("is_deleted", deleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
