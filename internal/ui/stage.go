package ui

import (
	"fmt"
	"strings"

	"rsa-visualizer-service/internal/domain"
)

// maxShownValues は暗号文を1行に表示する最大個数。
const maxShownValues = 16

// PublicKey は公開鍵を "(n=…, e=…)" 形式で返す。
func PublicKey(k domain.PublicKey) string {
	return Public.Sprintf("(n=%d, e=%d)", k.N, k.E)
}

// PrivateKey は秘密鍵を "(n=…, d=…)" 形式で返す。
func PrivateKey(k domain.PrivateKey) string {
	return Secret.Sprintf("(n=%d, d=%d)", k.N, k.D)
}

// Ciphertext は暗号文の値を空白区切りで返す。多い場合は末尾を省略する。
func Ciphertext(ct []int64) string {
	if len(ct) == 0 {
		return Muted.Sprint("empty")
	}
	shown := ct
	if len(shown) > maxShownValues {
		shown = shown[:maxShownValues]
	}
	parts := make([]string, len(shown))
	for i, v := range shown {
		parts[i] = fmt.Sprint(v)
	}
	s := Cipher.Sprint("[" + strings.Join(parts, " ") + "]")
	if rest := len(ct) - len(shown); rest > 0 {
		s += " " + Muted.Sprintf("+%d more", rest)
	}
	return s
}

// StageTitle はステップ番号付きのステージ名を返す。
func StageTitle(step domain.Step) string {
	if !step.Valid() {
		return Title.Sprint("Demo complete")
	}
	return Title.Sprintf("%d/%d %s", int(step)+1, len(domain.Stages), domain.Stages[step].Title)
}

// StageDetails はstateのステップで起きたことを表す行を返す。
func StageDetails(state domain.DemoState) []string {
	switch state.Step {
	case domain.StepKeyGeneration:
		return []string{
			"Alice public " + PublicKey(state.AliceKeys.PublicKey) + " private " + PrivateKey(state.AliceKeys.PrivateKey),
			"Bob   public " + PublicKey(state.BobKeys.PublicKey) + " private " + PrivateKey(state.BobKeys.PrivateKey),
		}
	case domain.StepKeyExchange:
		return []string{"Bob -> Alice " + PublicKey(state.BobKeys.PublicKey)}
	case domain.StepEncrypt:
		lines := []string{
			"message    " + Plain.Sprint(state.Message),
			"ciphertext " + Ciphertext(state.Ciphertext),
		}
		return append(lines, characterLines(state, false)...)
	case domain.StepTransmit:
		return []string{"Alice -> Bob " + Ciphertext(state.Ciphertext)}
	case domain.StepDecrypt:
		lines := []string{"decrypted  " + Plain.Sprint(state.Decrypted)}
		lines = append(lines, characterLines(state, true)...)
		if state.Verified() {
			return append(lines, Success.Sprint("✓")+" matches the original message")
		}
		return append(lines, Error.Sprint("✗")+" does not match the original message")
	}
	return nil
}

// Character は文字とその文字コードを "H (72)" 形式で返す。
func Character(r rune, code int64) string {
	return Plain.Sprintf("%c", r) + fmt.Sprintf(" (%d)", code)
}

// characterLines は1文字ずつの変換を "H (72) → 19" の形で返す。
// decryptがtrueの場合は "19 → H (72)" の向きで復号後の文字を示す。
func characterLines(state domain.DemoState, decrypt bool) []string {
	chars := state.Characters()
	shown := chars
	if len(shown) > maxShownValues {
		shown = shown[:maxShownValues]
	}
	var lines []string
	for _, c := range shown {
		if !c.HasEncrypted {
			continue
		}
		if decrypt {
			if !c.HasDecrypted {
				continue
			}
			lines = append(lines, "  "+Cipher.Sprint(c.Encrypted)+" → "+Character(rune(c.DecryptedCode), c.DecryptedCode))
			continue
		}
		lines = append(lines, "  "+Character(c.Char, c.Code)+" → "+Cipher.Sprint(c.Encrypted))
	}
	if rest := len(chars) - len(shown); rest > 0 && len(lines) > 0 {
		lines = append(lines, "  "+Muted.Sprintf("+%d more", rest))
	}
	return lines
}

// RenderStage は終了したステージの結果を複数行の文字列で返す。
func RenderStage(state domain.DemoState) string {
	var b strings.Builder
	if state.LastError != "" {
		fmt.Fprintf(&b, "%s %s\n", Error.Sprint("✗"), StageTitle(state.Step))
		fmt.Fprintf(&b, "    %s\n", Error.Sprint(state.LastError))
		return b.String()
	}
	fmt.Fprintf(&b, "%s %s\n", Success.Sprint("✓"), StageTitle(state.Step))
	for _, line := range StageDetails(state) {
		fmt.Fprintf(&b, "    %s\n", line)
	}
	return b.String()
}

// RenderState はデモ状態全体の要約を返す。
func RenderState(state domain.DemoState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "demo    %s\n", state.ID)
	switch {
	case state.Complete:
		fmt.Fprintf(&b, "stage   %s\n", StageTitle(domain.StepComplete))
	case state.Animating:
		fmt.Fprintf(&b, "stage   %s %s\n", StageTitle(state.Step), Muted.Sprint("running"))
	default:
		fmt.Fprintf(&b, "stage   %s\n", StageTitle(state.Step))
	}
	fmt.Fprintf(&b, "message %s\n", Plain.Sprint(state.Message))
	fmt.Fprintf(&b, "alice   %s\n", PublicKey(state.AliceKeys.PublicKey))
	fmt.Fprintf(&b, "bob     %s %s\n", PublicKey(state.BobKeys.PublicKey), PrivateKey(state.BobKeys.PrivateKey))
	fmt.Fprintf(&b, "cipher  %s\n", Ciphertext(state.Ciphertext))
	if state.Decrypted != "" {
		fmt.Fprintf(&b, "result  %s\n", Plain.Sprint(state.Decrypted))
	}
	if state.LastError != "" {
		fmt.Fprintf(&b, "error   %s\n", Error.Sprint(state.LastError))
	}
	return b.String()
}
