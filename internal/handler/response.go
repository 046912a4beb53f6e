package handler

import (
	"time"

	"rsa-visualizer-service/internal/domain"
)

// PublicKeyJSON は公開鍵 (n, e) のJSON形式。
type PublicKeyJSON struct {
	N int64 `json:"n"`
	E int64 `json:"e"`
}

// PrivateKeyJSON は秘密鍵 (n, d) のJSON形式。
type PrivateKeyJSON struct {
	N int64 `json:"n"`
	D int64 `json:"d"`
}

// KeyPairResponse は鍵ペアのレスポンス形式。
type KeyPairResponse struct {
	PublicKey  PublicKeyJSON  `json:"public_key"`
	PrivateKey PrivateKeyJSON `json:"private_key"`
}

func toKeyPairResponse(kp domain.KeyPair) KeyPairResponse {
	return KeyPairResponse{
		PublicKey:  PublicKeyJSON{N: kp.PublicKey.N, E: kp.PublicKey.E},
		PrivateKey: PrivateKeyJSON{N: kp.PrivateKey.N, D: kp.PrivateKey.D},
	}
}

// StageResponse はステージ定義のレスポンス形式。
type StageResponse struct {
	Step        int    `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CharacterJSON はメッセージ1文字分の経過。未計算の値は省略する。
type CharacterJSON struct {
	Char          string `json:"char"`
	Code          int64  `json:"code"`
	Encrypted     *int64 `json:"encrypted,omitempty"`
	DecryptedCode *int64 `json:"decrypted_code,omitempty"`
}

func toCharacters(traces []domain.CharTrace) []CharacterJSON {
	chars := make([]CharacterJSON, len(traces))
	for i, t := range traces {
		chars[i] = CharacterJSON{Char: string(t.Char), Code: t.Code}
		if t.HasEncrypted {
			v := t.Encrypted
			chars[i].Encrypted = &v
		}
		if t.HasDecrypted {
			v := t.DecryptedCode
			chars[i].DecryptedCode = &v
		}
	}
	return chars
}

// DemoResponse はデモ状態のレスポンス形式。
type DemoResponse struct {
	DemoID     string          `json:"demo_id"`
	Step       int             `json:"step"`
	StageTitle string          `json:"stage_title,omitempty"`
	Animating  bool            `json:"animating"`
	Complete   bool            `json:"complete"`
	Message    string          `json:"message"`
	AliceKeys  KeyPairResponse `json:"alice_keys"`
	BobKeys    KeyPairResponse `json:"bob_keys"`
	Ciphertext []int64         `json:"ciphertext"`
	Characters []CharacterJSON `json:"characters"`
	Decrypted  string          `json:"decrypted"`
	Verified   bool            `json:"verified"`
	LastError  string          `json:"last_error,omitempty"`
	UpdatedAt  string          `json:"updated_at"`
}

func toDemoResponse(s domain.DemoState) DemoResponse {
	resp := DemoResponse{
		DemoID:     s.ID,
		Step:       int(s.Step),
		Animating:  s.Animating,
		Complete:   s.Complete,
		Message:    s.Message,
		AliceKeys:  toKeyPairResponse(s.AliceKeys),
		BobKeys:    toKeyPairResponse(s.BobKeys),
		Ciphertext: s.Ciphertext,
		Characters: toCharacters(s.Characters()),
		Decrypted:  s.Decrypted,
		Verified:   s.Verified(),
		LastError:  s.LastError,
		UpdatedAt:  s.UpdatedAt.Format(time.RFC3339Nano),
	}
	if s.Step.Valid() {
		resp.StageTitle = domain.Stages[s.Step].Title
	}
	if resp.Ciphertext == nil {
		resp.Ciphertext = []int64{}
	}
	return resp
}

// RunResponse は実行記録のレスポンス形式。秘密鍵は含めない。
type RunResponse struct {
	RunID          string        `json:"run_id"`
	DemoID         string        `json:"demo_id"`
	Message        string        `json:"message"`
	AlicePublicKey PublicKeyJSON `json:"alice_public_key"`
	BobPublicKey   PublicKeyJSON `json:"bob_public_key"`
	Ciphertext     []int64       `json:"ciphertext"`
	Decrypted      string        `json:"decrypted"`
	Completed      bool          `json:"completed"`
	Failure        string        `json:"failure,omitempty"`
	KeySealed      bool          `json:"key_sealed"`
	CreatedAt      string        `json:"created_at"`
}

func toRunResponse(r *domain.DemoRun) RunResponse {
	resp := RunResponse{
		RunID:          r.ID,
		DemoID:         r.DemoID,
		Message:        r.Message,
		AlicePublicKey: PublicKeyJSON{N: r.AlicePublicKey.N, E: r.AlicePublicKey.E},
		BobPublicKey:   PublicKeyJSON{N: r.BobPublicKey.N, E: r.BobPublicKey.E},
		Ciphertext:     r.Ciphertext,
		Decrypted:      r.Decrypted,
		Completed:      r.Completed,
		Failure:        r.Failure,
		KeySealed:      len(r.SealedPrivateKey) > 0,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
	if resp.Ciphertext == nil {
		resp.Ciphertext = []int64{}
	}
	return resp
}

// RunListResponse は実行記録一覧のレスポンス形式。
type RunListResponse struct {
	Runs []RunResponse `json:"runs"`
}
