package domain

import "time"

// MigrationStatus はマイグレーションの適用状態。
type MigrationStatus string

const (
	MigrationStatusPending MigrationStatus = "pending"
	MigrationStatusApplied MigrationStatus = "applied"
)

// Migration は demo_runs などのスキーマを作るSQLファイル1つ分。
type Migration struct {
	Version   string     // ファイル名の先頭（例: "001"）
	Name      string     // バージョン以降のファイル名
	File      string     // マイグレーション用fs.FS内のファイル名
	AppliedAt *time.Time // 未適用ならnil
	Status    MigrationStatus
}

// IsApplied は適用済みかどうかを返す。
func (m *Migration) IsApplied() bool {
	return m.Status == MigrationStatusApplied
}
