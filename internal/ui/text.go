// Package ui はCLI向けの色付き出力とステージ表示を提供する。
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter は用途ごとの書式を適用する。色が無効な場合はprefix/suffixで代替する。
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint は引数を書式化した文字列を返す。
func (f Formatter) Sprint(a ...any) string {
	return f.apply(fmt.Sprint(a...))
}

// Sprintf はformatに従って書式化した文字列を返す。
func (f Formatter) Sprintf(format string, a ...any) string {
	return f.apply(fmt.Sprintf(format, a...))
}

func (f Formatter) apply(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline は末尾が改行で終わるようにする。
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// noColor はNO_COLORが設定されているか端末が色に対応していない場合にtrueを返す。
func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Title はステージ名。太字。
	Title = Formatter{color.New(color.Bold), "", ""}

	// Public は公開鍵など誰に見られてもよい値。緑。
	Public = Formatter{color.New(color.FgGreen), "", ""}

	// Secret は秘密鍵など本人だけが知る値。赤、色なしでは[角括弧]。
	Secret = Formatter{color.New(color.FgRed), "[", "]"}

	// Cipher は暗号文。黄色。
	Cipher = Formatter{color.New(color.FgYellow), "", ""}

	// Plain は平文。シアン、色なしでは"引用符"。
	Plain = Formatter{color.New(color.FgCyan), `"`, `"`}

	// Success は成功の印。緑。
	Success = Formatter{color.New(color.FgGreen), "", ""}

	// Error は失敗の印。赤。
	Error = Formatter{color.New(color.FgRed), "", ""}

	// Muted は補足情報。灰色、色なしでは(括弧)。
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)
