package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rsa-visualizer-service/config"
	"rsa-visualizer-service/internal/cipher"
	"rsa-visualizer-service/internal/domain"
	"rsa-visualizer-service/internal/ui"
	"rsa-visualizer-service/internal/usecase"
)

// player はSequencerの状態遷移を端末に描画する。
type player struct {
	mu      sync.Mutex
	out     io.Writer
	spin    *spinner.Spinner // nilの場合はアニメーションなし
	running bool
}

func newPlayer(out io.Writer, animate bool) *player {
	p := &player{out: out}
	if animate {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
		// 色が設定できなくても続行する
		_ = s.Color("cyan")
		p.spin = s
	}
	return p
}

// observe はSequencerの通知を受けて表示を更新する。
func (p *player) observe(state domain.DemoState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case state.Complete:
		fmt.Fprintln(p.out, ui.Success.Sprint("✓")+" "+ui.StageTitle(domain.StepComplete))
	case state.Animating:
		p.running = true
		if p.spin != nil {
			p.spin.Suffix = " " + ui.StageTitle(state.Step)
			p.spin.Start()
		}
	case state.Step.Valid() && (state.LastError != "" || p.running):
		p.running = false
		p.finish(ui.RenderStage(state))
	}
}

func (p *player) spinning() bool {
	return p.spin != nil && p.spin.Active()
}

// finish はスピナーを止めてmsgを出力する。スピナーが動いていない場合は直接出力する。
func (p *player) finish(msg string) {
	if p.spinning() {
		p.spin.FinalMSG = ui.EnsureNewline(msg)
		p.spin.Stop()
		return
	}
	fmt.Fprint(p.out, msg)
}

// stop は中断時に回っているスピナーを止める。
func (p *player) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinning() {
		p.spin.FinalMSG = ""
		p.spin.Stop()
	}
}

// playDemo はメモリ上のSequencerでデモを1回通しで実行する。
func playDemo(ctx context.Context, p *player, message string, keygen usecase.KeyGenerator, pacing usecase.Pacing) error {
	seq, err := usecase.NewSequencer(uuid.NewString(), message, keygen,
		usecase.WithPacing(pacing),
		usecase.WithObserver(p.observe),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "Alice sends %s to Bob\n\n", ui.Plain.Sprint(message))
	return seq.RunFullDemo(ctx)
}

// playCmd はサーバーを使わずに端末上でデモを再生する。
func playCmd() *cobra.Command {
	var message string
	var stepDelay, pauseDelay time.Duration
	var noSpinner bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the five stage RSA demo locally in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if message == "" {
				message = cfg.DefaultMessage
			}
			if !cmd.Flags().Changed("step-delay") {
				stepDelay = cfg.StepDelay
			}
			if !cmd.Flags().Changed("pause-delay") {
				pauseDelay = cfg.PauseDelay
			}

			keygen, err := cipher.NewGenerator(cipher.PoolsFrom(cfg.PrimePool, cfg.ExponentPool), nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := newPlayer(cmd.OutOrStdout(), !noSpinner)
			err = playDemo(ctx, p, message, keygen, usecase.Pacing{StepDelay: stepDelay, PauseDelay: pauseDelay})
			p.stop()
			return err
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "Message Alice sends (defaults to DEFAULT_MESSAGE)")
	cmd.Flags().DurationVar(&stepDelay, "step-delay", time.Second, "Animation time of each stage (defaults to STEP_DELAY)")
	cmd.Flags().DurationVar(&pauseDelay, "pause-delay", 1500*time.Millisecond, "Pause between stages (defaults to PAUSE_DELAY)")
	cmd.Flags().BoolVar(&noSpinner, "no-spinner", false, "Disable the spinner animation")
	return cmd
}
