package domain

import "time"

// Step はデモの進行位置を表す。0〜4がステージ、5が完了。
type Step int

const (
	StepKeyGeneration Step = iota
	StepKeyExchange
	StepEncrypt
	StepTransmit
	StepDecrypt
	StepComplete
)

// Valid は実行可能なステージ番号かどうかを返す。
func (s Step) Valid() bool {
	return s >= StepKeyGeneration && s <= StepDecrypt
}

// Stage はデモの1ステージの表示情報。
type Stage struct {
	Step        Step
	Title       string
	Description string
}

// Stages はステージ定義の一覧。
var Stages = []Stage{
	{StepKeyGeneration, "Alice and Bob generate their key pairs", "Each party picks two primes and derives a public key (n, e) and a private key (n, d)."},
	{StepKeyExchange, "Alice gets Bob's public key", "Bob shares (n, e). His private exponent d never leaves him."},
	{StepEncrypt, "Alice encrypts her message with Bob's public key", "Every character code c becomes c^e mod n."},
	{StepTransmit, "Alice sends the encrypted message to Bob", "Only the list of encrypted integers travels over the wire."},
	{StepDecrypt, "Bob decrypts the message with his private key", "Every encrypted value x becomes x^d mod n, which maps back to a character."},
}

// DemoState はデモの現在状態。Sequencerのみが更新し、表示側はコピーを読む。
type DemoState struct {
	ID         string
	Step       Step
	Animating  bool
	Complete   bool
	AliceKeys  KeyPair
	BobKeys    KeyPair
	Message    string
	Ciphertext []int64
	Decrypted  string
	LastError  string
	UpdatedAt  time.Time
}

// Clone はスライスを含めたディープコピーを返す。
func (s DemoState) Clone() DemoState {
	c := s
	if s.Ciphertext != nil {
		c.Ciphertext = append([]int64(nil), s.Ciphertext...)
	}
	return c
}

// CharTrace はメッセージ1文字分の暗号化・復号の経過。
type CharTrace struct {
	Char          rune
	Code          int64
	Encrypted     int64
	HasEncrypted  bool
	DecryptedCode int64
	HasDecrypted  bool
}

// Characters はメッセージの各文字について文字コード、暗号値、復号後の文字コードを返す。
// まだ計算されていない値はHas*がfalseになる。
func (s DemoState) Characters() []CharTrace {
	decrypted := []rune(s.Decrypted)
	var traces []CharTrace
	for i, r := range []rune(s.Message) {
		t := CharTrace{Char: r, Code: int64(r)}
		if i < len(s.Ciphertext) {
			t.Encrypted = s.Ciphertext[i]
			t.HasEncrypted = true
		}
		if i < len(decrypted) {
			t.DecryptedCode = int64(decrypted[i])
			t.HasDecrypted = true
		}
		traces = append(traces, t)
	}
	return traces
}

// DecryptionDone は復号ステージを通過済みかどうかを返す。
func (s DemoState) DecryptionDone() bool {
	return (s.Step == StepDecrypt || s.Step == StepComplete) && s.LastError == ""
}

// Verified は復号結果が元のメッセージと一致したかどうかを返す。
func (s DemoState) Verified() bool {
	return s.DecryptionDone() && s.Decrypted == s.Message
}

// DemoRun は完了（または失敗）したデモ実行の記録。
type DemoRun struct {
	ID               string
	DemoID           string
	Message          string
	AlicePublicKey   PublicKey
	BobPublicKey     PublicKey
	Ciphertext       []int64
	Decrypted        string
	Completed        bool
	Failure          string
	SealedPrivateKey []byte // KMSで暗号化したBobの秘密鍵（KMS未設定時はnil）
	CreatedAt        time.Time
}
