package usecase

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"rsa-visualizer-service/internal/domain"
	"rsa-visualizer-service/internal/repository"
	"rsa-visualizer-service/migrations"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// mockMigrationRepository はテスト用のモック。
type mockMigrationRepository struct {
	appliedMigrations map[string]*domain.Migration
	recordError       error
	ensureError       error
}

func newMockMigrationRepository() *mockMigrationRepository {
	return &mockMigrationRepository{
		appliedMigrations: make(map[string]*domain.Migration),
	}
}

func (m *mockMigrationRepository) EnsureTable(ctx context.Context) error {
	return m.ensureError
}

func (m *mockMigrationRepository) FindAllApplied(ctx context.Context) ([]*domain.Migration, error) {
	var result []*domain.Migration
	for _, migration := range m.appliedMigrations {
		result = append(result, migration)
	}
	return result, nil
}

func (m *mockMigrationRepository) RecordMigration(ctx context.Context, tx *gorm.DB, version string) error {
	if m.recordError != nil {
		return m.recordError
	}
	now := time.Now()
	m.appliedMigrations[version] = &domain.Migration{
		Version:   version,
		AppliedAt: &now,
		Status:    domain.MigrationStatusApplied,
	}
	return nil
}

func (m *mockMigrationRepository) IsMigrationApplied(ctx context.Context, version string) (bool, error) {
	_, exists := m.appliedMigrations[version]
	return exists, nil
}

// testMigrations はテスト用のマイグレーションファイル。
func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"001_create_demo_runs.sql":  {Data: []byte("CREATE TABLE demo_runs (id INT);")},
		"002_create_audit_logs.sql": {Data: []byte("CREATE TABLE audit_logs (id INT);")},
		"003_create_stages.sql":     {Data: []byte("CREATE TABLE stages (id INT);")},
		"README.md":                 {Data: []byte("ignored")},
	}
}

// setupTestDB はテスト用のインメモリSQLiteデータベースを作成する。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// インメモリDBは接続ごとに別物になるため1本に固定
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db
}

func tableExists(t *testing.T, db *gorm.DB, table string) bool {
	t.Helper()
	var count int64
	if err := db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count).Error; err != nil {
		t.Fatalf("failed to check table %s: %v", table, err)
	}
	return count == 1
}

func TestMigrationService_ApplyMigrations(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := newMockMigrationRepository()

	service := NewMigrationService(repo, db, testMigrations())

	count, err := service.ApplyMigrations(ctx)
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}

	if count != 3 {
		t.Errorf("expected 3 migrations applied, got %d", count)
	}

	for _, table := range []string{"demo_runs", "audit_logs", "stages"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s was not created", table)
		}
	}
}

func TestMigrationService_ApplyMigrations_AlreadyApplied(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := newMockMigrationRepository()

	now := time.Now()
	for _, v := range []string{"001", "002"} {
		repo.appliedMigrations[v] = &domain.Migration{
			Version:   v,
			AppliedAt: &now,
			Status:    domain.MigrationStatusApplied,
		}
	}

	service := NewMigrationService(repo, db, testMigrations())

	count, err := service.ApplyMigrations(ctx)
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}

	// 未適用のマイグレーションのみ実行される
	if count != 1 {
		t.Errorf("expected 1 migration applied, got %d", count)
	}
	if tableExists(t, db, "demo_runs") {
		t.Error("applied migration 001 was executed again")
	}
}

func TestMigrationService_ApplyMigrations_InvalidSQL(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := newMockMigrationRepository()

	files := testMigrations()
	files["004_invalid.sql"] = &fstest.MapFile{Data: []byte("INVALID SQL SYNTAX;")}
	service := NewMigrationService(repo, db, files)

	count, err := service.ApplyMigrations(ctx)
	if !errors.Is(err, domain.ErrMigrationFailed) {
		t.Errorf("expected ErrMigrationFailed, got %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 migrations applied before failure, got %d", count)
	}
}

func TestMigrationService_ApplyMigrations_InvalidFileName(t *testing.T) {
	db := setupTestDB(t)
	files := fstest.MapFS{"create.sql": {Data: []byte("SELECT 1;")}}
	service := NewMigrationService(newMockMigrationRepository(), db, files)

	_, err := service.ApplyMigrations(context.Background())
	if !errors.Is(err, domain.ErrInvalidMigrationFile) {
		t.Errorf("expected ErrInvalidMigrationFile, got %v", err)
	}
}

func TestMigrationService_ApplyMigrations_EnsureTableError(t *testing.T) {
	db := setupTestDB(t)
	repo := newMockMigrationRepository()
	repo.ensureError = errors.New("no permission")
	service := NewMigrationService(repo, db, testMigrations())

	if _, err := service.ApplyMigrations(context.Background()); !errors.Is(err, repo.ensureError) {
		t.Errorf("expected ensure error, got %v", err)
	}
}

func TestMigrationService_GetMigrationStatus(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := newMockMigrationRepository()

	now := time.Now()
	repo.appliedMigrations["001"] = &domain.Migration{
		Version:   "001",
		AppliedAt: &now,
		Status:    domain.MigrationStatusApplied,
	}

	service := NewMigrationService(repo, db, testMigrations())

	migrations, err := service.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}

	if len(migrations) != 3 {
		t.Errorf("expected 3 migrations, got %d", len(migrations))
	}

	expectedStatuses := map[string]domain.MigrationStatus{
		"001": domain.MigrationStatusApplied,
		"002": domain.MigrationStatusPending,
		"003": domain.MigrationStatusPending,
	}

	for _, migration := range migrations {
		expectedStatus, exists := expectedStatuses[migration.Version]
		if !exists {
			t.Errorf("unexpected migration version: %s", migration.Version)
			continue
		}

		if migration.Status != expectedStatus {
			t.Errorf("migration %s: expected status %s, got %s", migration.Version, expectedStatus, migration.Status)
		}
	}
}

func TestMigrationService_EmbeddedMigrations(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.NewMigrationRepository(db)
	service := NewMigrationService(repo, db, migrations.FS)

	count, err := service.ApplyMigrations(ctx)
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count == 0 {
		t.Fatal("expected embedded migrations to be applied")
	}
	if !tableExists(t, db, "demo_runs") {
		t.Error("table demo_runs was not created")
	}

	// 2回目は何も適用しない
	count, err = service.ApplyMigrations(ctx)
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 migrations applied, got %d", count)
	}

	statuses, err := service.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	for _, m := range statuses {
		if !m.IsApplied() || m.AppliedAt == nil {
			t.Errorf("migration %s: expected applied, got %s", m.Version, m.Status)
		}
	}
}
