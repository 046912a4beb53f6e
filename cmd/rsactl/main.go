// Package main はCLIツールのエントリポイント。
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rsa-visualizer-service/internal/handler"
)

const version = "1.0.0"

var (
	apiURL  string
	output  string
	timeout time.Duration
)

// HTTPクライアント
var httpClient *http.Client

var errNoAPIURL = errors.New("--api-url is required (or set RSACTL_API_URL)")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rsactl",
		Short: "Textbook RSA visualizer CLI",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			if apiURL == "" {
				apiURL = os.Getenv("RSACTL_API_URL")
			}
			httpClient = &http.Client{Timeout: timeout}
		},
		SilenceUsage: true,
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API endpoint URL (or set RSACTL_API_URL)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(keygenCmd())
	rootCmd.AddCommand(encryptCmd())
	rootCmd.AddCommand(decryptCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(playCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rsactl version %s\n", version)
		},
	}
}

// apiRequest はAPIを呼び出し、wantStatus以外の応答をエラーにする。
func apiRequest(ctx context.Context, method, path string, body any, wantStatus int) ([]byte, error) {
	if apiURL == "" {
		return nil, errNoAPIURL
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(apiURL, "/")+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return nil, handleErrorResponse(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// printResponse は--output jsonなら生のJSONを、そうでなければtextの結果を出力する。
func printResponse[T any](cmd *cobra.Command, body []byte, text func(T) string) error {
	if output == "json" {
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(body)))
		return nil
	}
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), text(v))
	return nil
}

func handleErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("%s: %s", errResp.Code, errResp.Message)
	}
	return fmt.Errorf("server returned status %d", statusCode)
}

// parseCiphertext はカンマまたは空白区切りの整数列を読み取る。
func parseCiphertext(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '[' || r == ']'
	})
	values := make([]int64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ciphertext value %q", f)
		}
		values = append(values, v)
	}
	return values, nil
}

func formatValues(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

// keygenCmd は鍵ペアの生成コマンド。
func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a textbook RSA key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := apiRequest(cmd.Context(), http.MethodPost, "/v1/keypairs", nil, http.StatusCreated)
			if err != nil {
				return err
			}
			return printResponse(cmd, body, func(kp handler.KeyPairResponse) string {
				return fmt.Sprintf("public  n=%d e=%d\nprivate n=%d d=%d\n",
					kp.PublicKey.N, kp.PublicKey.E, kp.PrivateKey.N, kp.PrivateKey.D)
			})
		},
	}
}

// encryptCmd はメッセージの暗号化コマンド。
func encryptCmd() *cobra.Command {
	var message string
	var n, e int64
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a message with a public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handler.EncryptRequest{
				Message:   message,
				PublicKey: handler.PublicKeyJSON{N: n, E: e},
			}
			body, err := apiRequest(cmd.Context(), http.MethodPost, "/v1/encrypt", req, http.StatusOK)
			if err != nil {
				return err
			}
			return printResponse(cmd, body, func(resp handler.EncryptResponse) string {
				return formatValues(resp.Ciphertext) + "\n"
			})
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "Message to encrypt (required)")
	cmd.Flags().Int64Var(&n, "n", 0, "Public modulus (required)")
	cmd.Flags().Int64Var(&e, "e", 0, "Public exponent (required)")
	cmd.MarkFlagRequired("message")
	cmd.MarkFlagRequired("n")
	cmd.MarkFlagRequired("e")
	return cmd
}

// decryptCmd は暗号文の復号コマンド。
func decryptCmd() *cobra.Command {
	var ciphertext string
	var n, d int64
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a ciphertext with a private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseCiphertext(ciphertext)
			if err != nil {
				return err
			}
			req := handler.DecryptRequest{
				Ciphertext: values,
				PrivateKey: handler.PrivateKeyJSON{N: n, D: d},
			}
			body, err := apiRequest(cmd.Context(), http.MethodPost, "/v1/decrypt", req, http.StatusOK)
			if err != nil {
				return err
			}
			return printResponse(cmd, body, func(resp handler.DecryptResponse) string {
				return resp.Message + "\n"
			})
		},
	}
	cmd.Flags().StringVar(&ciphertext, "ciphertext", "", "Comma separated ciphertext values (required)")
	cmd.Flags().Int64Var(&n, "n", 0, "Private modulus (required)")
	cmd.Flags().Int64Var(&d, "d", 0, "Private exponent (required)")
	cmd.MarkFlagRequired("ciphertext")
	cmd.MarkFlagRequired("n")
	cmd.MarkFlagRequired("d")
	return cmd
}
