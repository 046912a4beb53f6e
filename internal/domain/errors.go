package domain

import "errors"

var (
	// ErrDemoNotFound は指定されたデモが存在しない場合のエラー。
	ErrDemoNotFound = errors.New("demo not found")

	// ErrDemoInProgress はデモが実行中で操作を受け付けられない場合のエラー。
	ErrDemoInProgress = errors.New("demo is in progress")

	// ErrTooManyDemos は同時に保持できるデモ数を超えた場合のエラー。
	ErrTooManyDemos = errors.New("too many demos")

	// ErrInvalidDemoID はデモIDの形式が不正な場合のエラー。
	ErrInvalidDemoID = errors.New("invalid demo ID")

	// ErrInvalidStep はステージ番号が不正な場合のエラー。
	ErrInvalidStep = errors.New("invalid step")

	// ErrInvalidMessage はメッセージが不正な場合のエラー。
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidKey は鍵の値が不正な場合のエラー。
	ErrInvalidKey = errors.New("invalid key")

	// ErrRunNotFound は指定された実行記録が存在しない場合のエラー。
	ErrRunNotFound = errors.New("run not found")

	// ErrSealerUnavailable はKMSが設定されておらず秘密鍵を扱えない場合のエラー。
	ErrSealerUnavailable = errors.New("key sealer is not configured")

	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrMigrationFileNotFound はマイグレーションファイルが見つからない場合のエラー。
	ErrMigrationFileNotFound = errors.New("migration file not found")

	// ErrInvalidMigrationFile はマイグレーションファイルのフォーマットが不正な場合のエラー。
	ErrInvalidMigrationFile = errors.New("invalid migration file")
)
