package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rsa-visualizer-service/internal/domain"
	"rsa-visualizer-service/internal/handler"
	"rsa-visualizer-service/internal/ui"
)

// pollInterval は demo run --wait の状態確認間隔。
const pollInterval = 300 * time.Millisecond

// demoCmd はサーバー上のデモセッションを操作するコマンド群。
func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Drive a demo session on the server",
	}
	cmd.AddCommand(demoCreateCmd())
	cmd.AddCommand(demoGetCmd())
	cmd.AddCommand(demoStepCmd())
	cmd.AddCommand(demoRunCmd())
	cmd.AddCommand(demoResetCmd())
	cmd.AddCommand(demoDeleteCmd())
	cmd.AddCommand(demoRunsCmd())
	cmd.AddCommand(demoRevealCmd())
	return cmd
}

// toState はAPIのレスポンスを表示用のドメイン状態に戻す。
func toState(d handler.DemoResponse) domain.DemoState {
	keyPair := func(k handler.KeyPairResponse) domain.KeyPair {
		return domain.KeyPair{
			PublicKey:  domain.PublicKey{N: k.PublicKey.N, E: k.PublicKey.E},
			PrivateKey: domain.PrivateKey{N: k.PrivateKey.N, D: k.PrivateKey.D},
		}
	}
	return domain.DemoState{
		ID:         d.DemoID,
		Step:       domain.Step(d.Step),
		Animating:  d.Animating,
		Complete:   d.Complete,
		AliceKeys:  keyPair(d.AliceKeys),
		BobKeys:    keyPair(d.BobKeys),
		Message:    d.Message,
		Ciphertext: d.Ciphertext,
		Decrypted:  d.Decrypted,
		LastError:  d.LastError,
	}
}

func renderDemo(d handler.DemoResponse) string {
	return ui.RenderState(toState(d))
}

func demoCreateCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a demo session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req any
			if message != "" {
				req = handler.MessageRequest{Message: message}
			}
			body, err := apiRequest(cmd.Context(), http.MethodPost, "/v1/demos", req, http.StatusCreated)
			if err != nil {
				return err
			}
			return printResponse(cmd, body, renderDemo)
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "Message Alice sends (defaults to the server's DEFAULT_MESSAGE)")
	return cmd
}

func demoGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get DEMO_ID",
		Short: "Show the state of a demo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := apiRequest(cmd.Context(), http.MethodGet, "/v1/demos/"+args[0], nil, http.StatusOK)
			if err != nil {
				return err
			}
			return printResponse(cmd, body, renderDemo)
		},
	}
}

func demoStepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step DEMO_ID STEP",
		Short: "Run a single stage (0-4) of a demo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/v1/demos/%s/steps/%s", args[0], args[1])
			body, err := apiRequest(cmd.Context(), http.MethodPost, path, nil, http.StatusOK)
			if err != nil {
				return err
			}
			return printResponse(cmd, body, func(d handler.DemoResponse) string {
				return ui.RenderStage(toState(d))
			})
		},
	}
}

func demoRunCmd() *cobra.Command {
	var wait bool
	var message string
	cmd := &cobra.Command{
		Use:   "run DEMO_ID",
		Short: "Run all stages of a demo on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			demoID := args[0]
			if message != "" {
				if _, err := apiRequest(cmd.Context(), http.MethodPut, "/v1/demos/"+demoID+"/message",
					handler.MessageRequest{Message: message}, http.StatusOK); err != nil {
					return err
				}
			}

			body, err := apiRequest(cmd.Context(), http.MethodPost, "/v1/demos/"+demoID+"/run", nil, http.StatusAccepted)
			if err != nil {
				return err
			}
			if !wait {
				return printResponse(cmd, body, func(d handler.DemoResponse) string {
					return fmt.Sprintf("Started demo %s\n", d.DemoID)
				})
			}
			return followDemo(cmd, demoID)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Follow the run and print each stage as it finishes")
	cmd.Flags().StringVar(&message, "message", "", "Replace the message before running")
	return cmd
}

// stageTracker はポーリングで得た状態から、終わったステージを一度ずつ取り出す。
type stageTracker struct {
	started map[domain.Step]bool
	printed map[domain.Step]bool
}

func newStageTracker() *stageTracker {
	return &stageTracker{
		started: make(map[domain.Step]bool),
		printed: make(map[domain.Step]bool),
	}
}

// finished はstateの時点で終了が確定し、まだ返していないステージの状態を順に返す。
// 現在のステージは実行中の状態を一度見てからでないと終了扱いにしない。
// リセット直後のステップ0と区別がつかないため。
func (t *stageTracker) finished(state domain.DemoState) []domain.DemoState {
	if state.Animating {
		t.started[state.Step] = true
	}
	current := state.Step
	if state.Complete {
		current = domain.StepComplete
	}

	var done []domain.DemoState
	emit := func(step domain.Step) {
		if t.printed[step] {
			return
		}
		t.printed[step] = true
		s := state
		s.Step = step
		if step != state.Step {
			s.LastError = ""
		}
		done = append(done, s)
	}
	for step := domain.StepKeyGeneration; step < current && step.Valid(); step++ {
		emit(step)
	}
	if current.Valid() && !state.Animating && (t.started[current] || state.LastError != "") {
		emit(current)
	}
	return done
}

// followDemo は完了または失敗までデモを監視し、終わったステージを順に表示する。
func followDemo(cmd *cobra.Command, demoID string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	tracker := newStageTracker()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		body, err := apiRequest(ctx, http.MethodGet, "/v1/demos/"+demoID, nil, http.StatusOK)
		if err != nil {
			return err
		}
		var d handler.DemoResponse
		if err := json.Unmarshal(body, &d); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		state := toState(d)

		for _, s := range tracker.finished(state) {
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderStage(s))
		}
		if state.LastError != "" {
			return fmt.Errorf("demo failed: %s", state.LastError)
		}
		if state.Complete {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success.Sprint("✓")+" "+ui.StageTitle(domain.StepComplete))
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for demo %s: %w", demoID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func demoResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset DEMO_ID",
		Short: "Reset a demo to stage 0 with fresh keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := apiRequest(cmd.Context(), http.MethodPost, "/v1/demos/"+args[0]+"/reset", nil, http.StatusOK)
			if err != nil {
				return err
			}
			return printResponse(cmd, body, renderDemo)
		},
	}
}

func demoDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete DEMO_ID",
		Short: "Discard a demo session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := apiRequest(cmd.Context(), http.MethodDelete, "/v1/demos/"+args[0], nil, http.StatusNoContent); err != nil {
				return err
			}
			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), "{}")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted demo %s\n", args[0])
			}
			return nil
		},
	}
}

func demoRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs DEMO_ID",
		Short: "List finished runs of a demo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := apiRequest(cmd.Context(), http.MethodGet, "/v1/demos/"+args[0]+"/runs", nil, http.StatusOK)
			if err != nil {
				return err
			}
			return printResponse(cmd, body, renderRuns)
		},
	}
}

func renderRuns(list handler.RunListResponse) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RUN_ID\tRESULT\tMESSAGE\tCREATED_AT")
	for _, r := range list.Runs {
		result := "completed"
		if !r.Completed {
			result = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%q\t%s\n", r.RunID, result, r.Message, r.CreatedAt)
	}
	w.Flush()
	return b.String()
}

func demoRevealCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reveal RUN_ID",
		Short: "Unseal Bob's private key stored with a finished run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := apiRequest(cmd.Context(), http.MethodGet, "/v1/runs/"+args[0]+"/private-key", nil, http.StatusOK)
			if err != nil {
				return err
			}
			return printResponse(cmd, body, func(k handler.PrivateKeyJSON) string {
				return fmt.Sprintf("private n=%d d=%d\n", k.N, k.D)
			})
		},
	}
}
