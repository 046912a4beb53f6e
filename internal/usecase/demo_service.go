package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"rsa-visualizer-service/internal/domain"
)

// MaxMessageLength はデモで扱うメッセージの最大文字数。
const MaxMessageLength = 256

// persistTimeout は実行記録の保存に使うタイムアウト。
const persistTimeout = 10 * time.Second

// RunRepository はデモ実行記録のデータアクセスのインターフェース。
type RunRepository interface {
	Create(ctx context.Context, run *domain.DemoRun) error
	FindByID(ctx context.Context, id string) (*domain.DemoRun, error)
	FindAllByDemoID(ctx context.Context, demoID string) ([]*domain.DemoRun, error)
}

// KeySealer は実行記録に保存する秘密鍵を封印/復元するインターフェース。
type KeySealer interface {
	SealPrivateKey(ctx context.Context, key domain.PrivateKey) ([]byte, error)
	UnsealPrivateKey(ctx context.Context, sealed []byte) (domain.PrivateKey, error)
}

// DemoServiceConfig はDemoServiceの設定。
type DemoServiceConfig struct {
	Pacing         Pacing
	DefaultMessage string
	MaxDemos       int
}

// DemoService は複数のデモセッションを管理する。
type DemoService struct {
	repo      RunRepository
	sealer    KeySealer // nilの場合、秘密鍵は保存しない
	keygen    KeyGenerator
	cfg       DemoServiceConfig

	mu    sync.RWMutex
	demos map[string]*Sequencer

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDemoService は新しいDemoServiceを生成する。
func NewDemoService(repo RunRepository, sealer KeySealer, keygen KeyGenerator, cfg DemoServiceConfig) *DemoService {
	ctx, cancel := context.WithCancel(context.Background())
	return &DemoService{
		repo:      repo,
		sealer:    sealer,
		keygen:    keygen,
		cfg:       cfg,
		demos:     make(map[string]*Sequencer),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

func validateMessage(message string) error {
	if !utf8.ValidString(message) {
		return fmt.Errorf("%w: not valid UTF-8", domain.ErrInvalidMessage)
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return fmt.Errorf("%w: longer than %d characters", domain.ErrInvalidMessage, MaxMessageLength)
	}
	return nil
}

// CreateDemo は新しいデモを生成する。messageが空の場合はデフォルトのメッセージを使う。
func (s *DemoService) CreateDemo(ctx context.Context, message string) (domain.DemoState, error) {
	if message == "" {
		message = s.cfg.DefaultMessage
	}
	if err := validateMessage(message); err != nil {
		return domain.DemoState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.MaxDemos > 0 && len(s.demos) >= s.cfg.MaxDemos {
		return domain.DemoState{}, domain.ErrTooManyDemos
	}

	id := uuid.New().String()
	seq, err := NewSequencer(id, message, s.keygen, WithPacing(s.cfg.Pacing))
	if err != nil {
		return domain.DemoState{}, fmt.Errorf("creating sequencer: %w", err)
	}
	s.demos[id] = seq

	slog.InfoContext(ctx, "demo created", "demo_id", id)
	return seq.State(), nil
}

func (s *DemoService) lookup(id string) (*Sequencer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, ok := s.demos[id]
	if !ok {
		return nil, domain.ErrDemoNotFound
	}
	return seq, nil
}

// GetDemo はデモの現在状態を取得する。
func (s *DemoService) GetDemo(ctx context.Context, id string) (domain.DemoState, error) {
	seq, err := s.lookup(id)
	if err != nil {
		return domain.DemoState{}, err
	}
	return seq.State(), nil
}

// DeleteDemo はデモを破棄する。実行中の場合は拒否する。
func (s *DemoService) DeleteDemo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.demos[id]
	if !ok {
		return domain.ErrDemoNotFound
	}
	if seq.Busy() {
		return domain.ErrDemoInProgress
	}
	delete(s.demos, id)
	return nil
}

// SetMessage はデモの平文を差し替える。
func (s *DemoService) SetMessage(ctx context.Context, id, message string) (domain.DemoState, error) {
	if err := validateMessage(message); err != nil {
		return domain.DemoState{}, err
	}
	seq, err := s.lookup(id)
	if err != nil {
		return domain.DemoState{}, err
	}
	if err := seq.SetMessage(message); err != nil {
		return domain.DemoState{}, err
	}
	return seq.State(), nil
}

// RunStep は指定したステージを実行し、実行後の状態を返す。
func (s *DemoService) RunStep(ctx context.Context, id string, step domain.Step) (domain.DemoState, error) {
	seq, err := s.lookup(id)
	if err != nil {
		return domain.DemoState{}, err
	}
	if err := seq.RunStep(ctx, step); err != nil {
		return seq.State(), err
	}
	return seq.State(), nil
}

// ResetDemo はデモをステップ0に戻し、鍵ペアを再生成する。
func (s *DemoService) ResetDemo(ctx context.Context, id string) (domain.DemoState, error) {
	seq, err := s.lookup(id)
	if err != nil {
		return domain.DemoState{}, err
	}
	if err := seq.Reset(); err != nil {
		return domain.DemoState{}, err
	}
	return seq.State(), nil
}

// StartFullDemo はデモ全体をバックグラウンドで実行する。
// 終了時に実行記録を保存し、結果を返却したチャネルに送る。
func (s *DemoService) StartFullDemo(ctx context.Context, id string) (<-chan error, error) {
	seq, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	seqDone, err := seq.StartFullDemo(s.baseCtx)
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)

		runErr := <-seqDone
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(s.baseCtx), persistTimeout)
		defer cancel()
		if err := s.recordRun(persistCtx, seq.State(), runErr); err != nil {
			slog.ErrorContext(persistCtx, "failed to record demo run",
				"operation", "start_full_demo",
				"demo_id", id,
				"error", err,
			)
		}
		done <- runErr
	}()

	slog.InfoContext(ctx, "demo run started", "demo_id", id)
	return done, nil
}

func (s *DemoService) recordRun(ctx context.Context, state domain.DemoState, runErr error) error {
	run := &domain.DemoRun{
		DemoID:         state.ID,
		Message:        state.Message,
		AlicePublicKey: state.AliceKeys.PublicKey,
		BobPublicKey:   state.BobKeys.PublicKey,
		Ciphertext:     state.Ciphertext,
		Decrypted:      state.Decrypted,
		Completed:      state.Complete,
	}
	if runErr != nil {
		run.Failure = runErr.Error()
	}

	if s.sealer != nil {
		sealed, err := s.sealer.SealPrivateKey(ctx, state.BobKeys.PrivateKey)
		if err != nil {
			return fmt.Errorf("sealing private key: %w", err)
		}
		run.SealedPrivateKey = sealed
	}

	if err := s.repo.Create(ctx, run); err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// GetRun は実行記録を取得する。
func (s *DemoService) GetRun(ctx context.Context, runID string) (*domain.DemoRun, error) {
	run, err := s.repo.FindByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("finding run: %w", err)
	}
	if run == nil {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

// ListRuns はデモの実行記録を古い順に取得する。
func (s *DemoService) ListRuns(ctx context.Context, demoID string) ([]*domain.DemoRun, error) {
	runs, err := s.repo.FindAllByDemoID(ctx, demoID)
	if err != nil {
		return nil, fmt.Errorf("finding runs: %w", err)
	}
	return runs, nil
}

// RevealPrivateKey は実行記録に保存したBobの秘密鍵をKMSで復号する。
func (s *DemoService) RevealPrivateKey(ctx context.Context, runID string) (domain.PrivateKey, error) {
	if s.sealer == nil {
		return domain.PrivateKey{}, domain.ErrSealerUnavailable
	}
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return domain.PrivateKey{}, err
	}
	if len(run.SealedPrivateKey) == 0 {
		return domain.PrivateKey{}, domain.ErrSealerUnavailable
	}

	key, err := s.sealer.UnsealPrivateKey(ctx, run.SealedPrivateKey)
	if err != nil {
		return domain.PrivateKey{}, fmt.Errorf("unsealing private key: %w", err)
	}
	return key, nil
}

// Close は実行中のデモをキャンセルし、終了を待つ。
func (s *DemoService) Close() {
	s.cancel()
	s.wg.Wait()
}
