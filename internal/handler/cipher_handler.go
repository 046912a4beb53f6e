// Package handler はHTTPハンドラを提供する。
package handler

import (
	"net/http"

	"rsa-visualizer-service/internal/domain"
	"rsa-visualizer-service/internal/middleware"
	"rsa-visualizer-service/internal/usecase"
	"rsa-visualizer-service/pkg/httputil"
)

// CipherHandler はデモに依存しない鍵生成・暗号化・復号のハンドラ。
type CipherHandler struct {
	service *usecase.CipherService
}

// NewCipherHandler は新しいCipherHandlerを生成する。
func NewCipherHandler(service *usecase.CipherService) *CipherHandler {
	return &CipherHandler{service: service}
}

// EncryptRequest は暗号化リクエストの形式。
type EncryptRequest struct {
	Message   string        `json:"message"`
	PublicKey PublicKeyJSON `json:"public_key"`
}

// EncryptResponse は暗号化レスポンスの形式。
type EncryptResponse struct {
	Ciphertext []int64 `json:"ciphertext"`
}

// DecryptRequest は復号リクエストの形式。
type DecryptRequest struct {
	Ciphertext []int64        `json:"ciphertext"`
	PrivateKey PrivateKeyJSON `json:"private_key"`
}

// DecryptResponse は復号レスポンスの形式。
type DecryptResponse struct {
	Message string `json:"message"`
}

// GenerateKeyPair は鍵ペアを生成する。
func (h *CipherHandler) GenerateKeyPair(w http.ResponseWriter, r *http.Request) {
	kp, err := h.service.GenerateKeyPair(r.Context())
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "GENERATE_KEYPAIR", "", -1, middleware.ResultFailed)
		writeError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "GENERATE_KEYPAIR", "", -1, middleware.ResultSuccess)
	httputil.JSON(w, http.StatusCreated, toKeyPairResponse(kp))
}

// Encrypt はメッセージを公開鍵で暗号化する。
func (h *CipherHandler) Encrypt(w http.ResponseWriter, r *http.Request) {
	var req EncryptRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	pub := domain.PublicKey{N: req.PublicKey.N, E: req.PublicKey.E}
	ct, err := h.service.Encrypt(r.Context(), req.Message, pub)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "ENCRYPT", "", -1, middleware.ResultFailed)
		writeError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "ENCRYPT", "", -1, middleware.ResultSuccess)
	if ct == nil {
		ct = []int64{}
	}
	httputil.JSON(w, http.StatusOK, EncryptResponse{Ciphertext: ct})
}

// Decrypt は暗号文を秘密鍵で復号する。
func (h *CipherHandler) Decrypt(w http.ResponseWriter, r *http.Request) {
	var req DecryptRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	priv := domain.PrivateKey{N: req.PrivateKey.N, D: req.PrivateKey.D}
	msg, err := h.service.Decrypt(r.Context(), req.Ciphertext, priv)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "DECRYPT", "", -1, middleware.ResultFailed)
		writeError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "DECRYPT", "", -1, middleware.ResultSuccess)
	httputil.JSON(w, http.StatusOK, DecryptResponse{Message: msg})
}

// ListStages はステージ定義の一覧を返す。
func (h *CipherHandler) ListStages(w http.ResponseWriter, r *http.Request) {
	stages := make([]StageResponse, len(domain.Stages))
	for i, s := range domain.Stages {
		stages[i] = StageResponse{Step: int(s.Step), Title: s.Title, Description: s.Description}
	}
	httputil.JSON(w, http.StatusOK, map[string][]StageResponse{"stages": stages})
}
