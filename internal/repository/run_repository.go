// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rsa-visualizer-service/internal/domain"
)

// DemoRunModel はgorm用のモデル定義。
type DemoRunModel struct {
	ID               string    `gorm:"type:char(36);primaryKey"`
	DemoID           string    `gorm:"type:char(36);not null;index:idx_demo_runs_demo_id"`
	Message          string    `gorm:"type:text;not null"`
	AliceN           int64     `gorm:"column:alice_n;not null"`
	AliceE           int64     `gorm:"column:alice_e;not null"`
	BobN             int64     `gorm:"column:bob_n;not null"`
	BobE             int64     `gorm:"column:bob_e;not null"`
	Ciphertext       []int64   `gorm:"type:text;serializer:json"`
	Decrypted        string    `gorm:"type:text"`
	Completed        bool      `gorm:"not null;default:false"`
	Failure          string    `gorm:"type:text"`
	SealedPrivateKey []byte    `gorm:"type:blob"`
	CreatedAt        time.Time `gorm:"type:datetime;not null;autoCreateTime"`
}

// TableName はテーブル名を返す。
func (DemoRunModel) TableName() string {
	return "demo_runs"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (m *DemoRunModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// toDomain はモデルをドメインエンティティに変換する。
func (m *DemoRunModel) toDomain() *domain.DemoRun {
	return &domain.DemoRun{
		ID:               m.ID,
		DemoID:           m.DemoID,
		Message:          m.Message,
		AlicePublicKey:   domain.PublicKey{N: m.AliceN, E: m.AliceE},
		BobPublicKey:     domain.PublicKey{N: m.BobN, E: m.BobE},
		Ciphertext:       m.Ciphertext,
		Decrypted:        m.Decrypted,
		Completed:        m.Completed,
		Failure:          m.Failure,
		SealedPrivateKey: m.SealedPrivateKey,
		CreatedAt:        m.CreatedAt,
	}
}

// RunRepository はデモ実行記録へのデータアクセスを提供する。
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository は新しいRunRepositoryを生成する。
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create は実行記録を保存する。
func (r *RunRepository) Create(ctx context.Context, run *domain.DemoRun) error {
	model := &DemoRunModel{
		ID:               run.ID,
		DemoID:           run.DemoID,
		Message:          run.Message,
		AliceN:           run.AlicePublicKey.N,
		AliceE:           run.AlicePublicKey.E,
		BobN:             run.BobPublicKey.N,
		BobE:             run.BobPublicKey.E,
		Ciphertext:       run.Ciphertext,
		Decrypted:        run.Decrypted,
		Completed:        run.Completed,
		Failure:          run.Failure,
		SealedPrivateKey: run.SealedPrivateKey,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create run",
			"operation", "create",
			"demo_id", run.DemoID,
			"error", err,
		)
		return err
	}
	// gormで設定された値をドメインエンティティに反映
	run.ID = model.ID
	run.CreatedAt = model.CreatedAt
	return nil
}

// FindByID は指定されたIDの実行記録を取得する。存在しない場合はnilを返す。
func (r *RunRepository) FindByID(ctx context.Context, id string) (*domain.DemoRun, error) {
	var model DemoRunModel
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find run",
			"operation", "find_by_id",
			"id", id,
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// FindAllByDemoID は指定されたデモの実行記録を古い順に取得する。
func (r *RunRepository) FindAllByDemoID(ctx context.Context, demoID string) ([]*domain.DemoRun, error) {
	var models []DemoRunModel
	err := r.db.WithContext(ctx).
		Where("demo_id = ?", demoID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to find runs by demo_id",
			"operation", "find_all_by_demo_id",
			"demo_id", demoID,
			"error", err,
		)
		return nil, err
	}

	runs := make([]*domain.DemoRun, len(models))
	for i, m := range models {
		runs[i] = m.toDomain()
	}
	return runs, nil
}
