// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rsa-visualizer-service/internal/cipher"
	"rsa-visualizer-service/internal/domain"
)

// KeyGenerator は鍵ペア生成のインターフェース。
type KeyGenerator interface {
	GenerateKeyPair() (domain.KeyPair, error)
}

// Pacing はステージ演出用のディレイ。
type Pacing struct {
	StepDelay  time.Duration // 各ステージ実行後の待ち時間
	PauseDelay time.Duration // ステージ間の待ち時間
}

// Observer は状態遷移ごとにスナップショットを受け取るコールバック。
type Observer func(state domain.DemoState)

// Sequencer はデモの5ステージを進める状態機械。
// 実行中（busy）の間は他の実行・リセットを ErrDemoInProgress で拒否する。
type Sequencer struct {
	keygen   KeyGenerator
	pacing   Pacing
	observer Observer
	now      func() time.Time

	mu    sync.Mutex
	busy  bool
	state domain.DemoState
}

// SequencerOption はSequencerの生成オプション。
type SequencerOption func(*Sequencer)

// WithObserver は状態遷移の通知先を設定する。
func WithObserver(o Observer) SequencerOption {
	return func(s *Sequencer) { s.observer = o }
}

// WithPacing はディレイを設定する。
func WithPacing(p Pacing) SequencerOption {
	return func(s *Sequencer) { s.pacing = p }
}

// NewSequencer は鍵ペアを生成して初期状態のSequencerを返す。
func NewSequencer(id, message string, keygen KeyGenerator, opts ...SequencerOption) (*Sequencer, error) {
	s := &Sequencer{
		keygen: keygen,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = domain.DemoState{ID: id, Message: message}
	if err := s.resetLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// State は現在状態のコピーを返す。
func (s *Sequencer) State() domain.DemoState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Busy は実行中かどうかを返す。
func (s *Sequencer) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// SetMessage は平文を差し替え、派生値をクリアする。
func (s *Sequencer) SetMessage(message string) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.ErrDemoInProgress
	}
	s.state.Message = message
	s.clearDerivedLocked()
	snapshot := s.touchLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Reset はステップ0に戻し、派生値をクリアして両者の鍵ペアを再生成する。
func (s *Sequencer) Reset() error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.ErrDemoInProgress
	}
	err := s.resetLocked()
	snapshot := s.touchLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(snapshot)
	return nil
}

// RunStep は指定したステージを1つ実行する。
func (s *Sequencer) RunStep(ctx context.Context, step domain.Step) error {
	if !step.Valid() {
		return fmt.Errorf("%w: %d", domain.ErrInvalidStep, step)
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()
	return s.runStep(ctx, step)
}

// RunFullDemo はリセット後にステージ0〜4を順に実行し、完了状態にする。
func (s *Sequencer) RunFullDemo(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()
	return s.runFull(ctx)
}

// StartFullDemo はRunFullDemoをゴルーチンで開始する。
// 実行結果は返却したチャネルに1度だけ送られる。
func (s *Sequencer) StartFullDemo(ctx context.Context) (<-chan error, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	// リセットは呼び出し元に戻る前に済ませ、直後の State() が前回の結果を返さないようにする
	if err := s.resetForRun(); err != nil {
		s.end()
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := s.runStages(ctx)
		s.end()
		done <- err
	}()
	return done, nil
}

func (s *Sequencer) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return domain.ErrDemoInProgress
	}
	s.busy = true
	return nil
}

func (s *Sequencer) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Sequencer) runFull(ctx context.Context) error {
	if err := s.resetForRun(); err != nil {
		return err
	}
	return s.runStages(ctx)
}

func (s *Sequencer) resetForRun() error {
	s.mu.Lock()
	err := s.resetLocked()
	snapshot := s.touchLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(snapshot)
	return nil
}

func (s *Sequencer) runStages(ctx context.Context) error {
	for step := domain.StepKeyGeneration; step <= domain.StepDecrypt; step++ {
		if err := s.runStep(ctx, step); err != nil {
			return err
		}
		if err := sleep(ctx, s.pacing.PauseDelay); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.state.Step = domain.StepComplete
	s.state.Complete = true
	snapshot := s.touchLocked()
	s.mu.Unlock()
	s.notify(snapshot)
	return nil
}

func (s *Sequencer) runStep(ctx context.Context, step domain.Step) error {
	s.mu.Lock()
	s.state.Animating = true
	s.state.Step = step
	s.state.Complete = false
	s.state.LastError = ""
	err := s.applyLocked(step)
	if err != nil {
		s.state.Animating = false
		s.state.LastError = err.Error()
	}
	snapshot := s.touchLocked()
	s.mu.Unlock()
	s.notify(snapshot)

	if err != nil {
		slog.WarnContext(ctx, "demo step failed",
			"demo_id", snapshot.ID,
			"step", int(step),
			"error", err,
		)
		return err
	}

	waitErr := sleep(ctx, s.pacing.StepDelay)

	s.mu.Lock()
	s.state.Animating = false
	snapshot = s.touchLocked()
	s.mu.Unlock()
	s.notify(snapshot)

	return waitErr
}

// applyLocked はステージ固有の処理を行う。呼び出し側でmuを保持すること。
func (s *Sequencer) applyLocked(step domain.Step) error {
	switch step {
	case domain.StepKeyGeneration, domain.StepKeyExchange, domain.StepTransmit:
		// 鍵はリセット時に生成済み。鍵交換と送信は表示のみ。
		return nil
	case domain.StepEncrypt:
		ct, err := cipher.Encrypt(s.state.Message, s.state.BobKeys.PublicKey)
		if err != nil {
			return fmt.Errorf("encrypting message: %w", err)
		}
		s.state.Ciphertext = ct
		return nil
	case domain.StepDecrypt:
		ct := s.state.Ciphertext
		if len(ct) == 0 {
			var err error
			ct, err = cipher.Encrypt(s.state.Message, s.state.BobKeys.PublicKey)
			if err != nil {
				return fmt.Errorf("encrypting message: %w", err)
			}
		}
		pt, err := cipher.Decrypt(ct, s.state.BobKeys.PrivateKey)
		if err != nil {
			return fmt.Errorf("decrypting message: %w", err)
		}
		s.state.Decrypted = pt
		return nil
	}
	return fmt.Errorf("%w: %d", domain.ErrInvalidStep, step)
}

func (s *Sequencer) resetLocked() error {
	alice, err := s.keygen.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generating Alice's key pair: %w", err)
	}
	bob, err := s.keygen.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generating Bob's key pair: %w", err)
	}
	s.state.AliceKeys = alice
	s.state.BobKeys = bob
	s.state.Step = domain.StepKeyGeneration
	s.state.Animating = false
	s.clearDerivedLocked()
	return nil
}

func (s *Sequencer) clearDerivedLocked() {
	s.state.Ciphertext = nil
	s.state.Decrypted = ""
	s.state.Complete = false
	s.state.LastError = ""
}

func (s *Sequencer) touchLocked() domain.DemoState {
	s.state.UpdatedAt = s.now()
	return s.state.Clone()
}

func (s *Sequencer) notify(state domain.DemoState) {
	if s.observer != nil {
		s.observer(state)
	}
}

// sleep はdだけ待つ。ctxがキャンセルされた場合はその時点で戻る。
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
