package repository

import (
	"context"
	"io/fs"
	"testing"

	"rsa-visualizer-service/internal/domain"
	"rsa-visualizer-service/migrations"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB はテスト用のインメモリSQLiteデータベースを作成し、埋め込みマイグレーションを適用する。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	// fs.ReadDirはファイル名順に返す
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		t.Fatalf("failed to read migrations: %v", err)
	}
	for _, entry := range entries {
		sql, err := fs.ReadFile(migrations.FS, entry.Name())
		if err != nil {
			t.Fatalf("failed to read %s: %v", entry.Name(), err)
		}
		if err := db.Exec(string(sql)).Error; err != nil {
			t.Fatalf("failed to apply %s: %v", entry.Name(), err)
		}
	}

	return db
}

func newTestRun(demoID string) *domain.DemoRun {
	return &domain.DemoRun{
		DemoID:           demoID,
		Message:          "Hello Bob!",
		AlicePublicKey:   domain.PublicKey{N: 8633, E: 5},
		BobPublicKey:     domain.PublicKey{N: 143, E: 7},
		Ciphertext:       []int64{19, 62, 4},
		Decrypted:        "Hello Bob!",
		Completed:        true,
		SealedPrivateKey: []byte("sealed"),
	}
}

func TestRunRepository_Create(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewRunRepository(db)

	run := newTestRun("demo-1")
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if run.ID == "" {
		t.Error("expected ID to be generated")
	}
	if run.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	var count int64
	if err := db.Model(&DemoRunModel{}).Where("demo_id = ?", "demo-1").Count(&count).Error; err != nil {
		t.Fatalf("failed to count runs: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 run, got %d", count)
	}
}

func TestRunRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewRunRepository(db)

	run := newTestRun("demo-1")
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := repo.FindByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected run, got nil")
	}
	if found.DemoID != "demo-1" || found.Message != "Hello Bob!" || !found.Completed {
		t.Errorf("unexpected run: %+v", found)
	}
	if found.BobPublicKey != (domain.PublicKey{N: 143, E: 7}) {
		t.Errorf("expected Bob public key (143, 7), got %+v", found.BobPublicKey)
	}
	if len(found.Ciphertext) != 3 || found.Ciphertext[0] != 19 {
		t.Errorf("expected ciphertext [19 62 4], got %v", found.Ciphertext)
	}
	if string(found.SealedPrivateKey) != "sealed" {
		t.Errorf("expected sealed key, got %q", found.SealedPrivateKey)
	}

	// 存在しない場合はnil
	missing, err := repo.FindByID(ctx, "missing")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil, got %+v", missing)
	}
}

func TestRunRepository_FindAllByDemoID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewRunRepository(db)

	for _, demoID := range []string{"demo-1", "demo-1", "demo-2"} {
		if err := repo.Create(ctx, newTestRun(demoID)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	runs, err := repo.FindAllByDemoID(ctx, "demo-1")
	if err != nil {
		t.Fatalf("FindAllByDemoID failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
	for _, r := range runs {
		if r.DemoID != "demo-1" {
			t.Errorf("unexpected demo_id %s", r.DemoID)
		}
	}

	runs, err = repo.FindAllByDemoID(ctx, "demo-3")
	if err != nil {
		t.Fatalf("FindAllByDemoID failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestRunRepository_FailedRunWithoutCiphertext(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewRunRepository(db)

	run := &domain.DemoRun{
		DemoID:  "demo-1",
		Message: "héllo",
		Failure: "encrypting message: character code is not less than modulus",
	}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := repo.FindByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.Completed || found.Failure == "" {
		t.Errorf("expected failed run, got %+v", found)
	}
	if len(found.Ciphertext) != 0 {
		t.Errorf("expected empty ciphertext, got %v", found.Ciphertext)
	}
	if len(found.SealedPrivateKey) != 0 {
		t.Errorf("expected no sealed key, got %v", found.SealedPrivateKey)
	}
}

func TestMigrationRepository_RecordAndFind(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)

	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}

	applied, err := repo.IsMigrationApplied(ctx, "001")
	if err != nil {
		t.Fatalf("IsMigrationApplied failed: %v", err)
	}
	if applied {
		t.Error("expected 001 not applied")
	}

	if err := repo.RecordMigration(ctx, nil, "001"); err != nil {
		t.Fatalf("RecordMigration failed: %v", err)
	}

	applied, err = repo.IsMigrationApplied(ctx, "001")
	if err != nil {
		t.Fatalf("IsMigrationApplied failed: %v", err)
	}
	if !applied {
		t.Error("expected 001 applied")
	}

	all, err := repo.FindAllApplied(ctx)
	if err != nil {
		t.Fatalf("FindAllApplied failed: %v", err)
	}
	if len(all) != 1 || all[0].Version != "001" || all[0].AppliedAt == nil {
		t.Errorf("unexpected applied migrations: %+v", all)
	}
}
