package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rsa-visualizer-service/internal/domain"
	"rsa-visualizer-service/internal/middleware"
	"rsa-visualizer-service/internal/usecase"
	"rsa-visualizer-service/pkg/httputil"
)

// DemoHandler はデモセッションのHTTPハンドラを提供する。
type DemoHandler struct {
	service *usecase.DemoService
}

// NewDemoHandler は新しいDemoHandlerを生成する。
func NewDemoHandler(service *usecase.DemoService) *DemoHandler {
	return &DemoHandler{service: service}
}

func validateUUID(id string, invalid error) error {
	if _, err := uuid.Parse(id); err != nil {
		return invalid
	}
	return nil
}

func validateStep(stepStr string) (domain.Step, error) {
	n, err := strconv.Atoi(stepStr)
	if err != nil || !domain.Step(n).Valid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidStep, stepStr)
	}
	return domain.Step(n), nil
}

// MessageRequest はメッセージ指定リクエストの形式。
type MessageRequest struct {
	Message string `json:"message"`
}

// CreateDemo は新しいデモを生成する。ボディは省略できる。
func (h *DemoHandler) CreateDemo(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, err)
		return
	}

	state, err := h.service.CreateDemo(r.Context(), req.Message)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "CREATE_DEMO", "", -1, middleware.ResultFailed)
		writeError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "CREATE_DEMO", state.ID, int(state.Step), middleware.ResultSuccess)
	httputil.JSON(w, http.StatusCreated, toDemoResponse(state))
}

// GetDemo はデモの現在状態を返す。
func (h *DemoHandler) GetDemo(w http.ResponseWriter, r *http.Request) {
	demoID := chi.URLParam(r, "demo_id")
	if err := validateUUID(demoID, domain.ErrInvalidDemoID); err != nil {
		writeError(w, err)
		return
	}

	state, err := h.service.GetDemo(r.Context(), demoID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toDemoResponse(state))
}

// DeleteDemo はデモを破棄する。
func (h *DemoHandler) DeleteDemo(w http.ResponseWriter, r *http.Request) {
	demoID := chi.URLParam(r, "demo_id")
	if err := validateUUID(demoID, domain.ErrInvalidDemoID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.DeleteDemo(r.Context(), demoID); err != nil {
		middleware.WriteAuditLog(r.Context(), "DELETE_DEMO", demoID, -1, middleware.ResultFailed)
		writeError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "DELETE_DEMO", demoID, -1, middleware.ResultSuccess)
	w.WriteHeader(http.StatusNoContent)
}

// SetMessage はデモの平文を差し替える。
func (h *DemoHandler) SetMessage(w http.ResponseWriter, r *http.Request) {
	demoID := chi.URLParam(r, "demo_id")
	if err := validateUUID(demoID, domain.ErrInvalidDemoID); err != nil {
		writeError(w, err)
		return
	}

	var req MessageRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	state, err := h.service.SetMessage(r.Context(), demoID, req.Message)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "SET_MESSAGE", demoID, -1, middleware.ResultFailed)
		writeError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "SET_MESSAGE", demoID, -1, middleware.ResultSuccess)
	httputil.JSON(w, http.StatusOK, toDemoResponse(state))
}

// RunStep は指定したステージを実行する。ステージの演出時間が経過するまで応答しない。
func (h *DemoHandler) RunStep(w http.ResponseWriter, r *http.Request) {
	demoID := chi.URLParam(r, "demo_id")
	if err := validateUUID(demoID, domain.ErrInvalidDemoID); err != nil {
		writeError(w, err)
		return
	}
	step, err := validateStep(chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, err)
		return
	}

	state, err := h.service.RunStep(r.Context(), demoID, step)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "RUN_STEP", demoID, int(step), middleware.ResultFailed)
		writeError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "RUN_STEP", demoID, int(step), middleware.ResultSuccess)
	httputil.JSON(w, http.StatusOK, toDemoResponse(state))
}

// RunFullDemo はデモ全体をバックグラウンドで開始する。
func (h *DemoHandler) RunFullDemo(w http.ResponseWriter, r *http.Request) {
	demoID := chi.URLParam(r, "demo_id")
	if err := validateUUID(demoID, domain.ErrInvalidDemoID); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.service.StartFullDemo(r.Context(), demoID); err != nil {
		middleware.WriteAuditLog(r.Context(), "RUN_FULL_DEMO", demoID, -1, middleware.ResultFailed)
		writeError(w, err)
		return
	}

	state, err := h.service.GetDemo(r.Context(), demoID)
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "RUN_FULL_DEMO", demoID, -1, middleware.ResultSuccess)
	httputil.JSON(w, http.StatusAccepted, toDemoResponse(state))
}

// ResetDemo はデモをステップ0に戻し、鍵を再生成する。
func (h *DemoHandler) ResetDemo(w http.ResponseWriter, r *http.Request) {
	demoID := chi.URLParam(r, "demo_id")
	if err := validateUUID(demoID, domain.ErrInvalidDemoID); err != nil {
		writeError(w, err)
		return
	}

	state, err := h.service.ResetDemo(r.Context(), demoID)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "RESET_DEMO", demoID, -1, middleware.ResultFailed)
		writeError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "RESET_DEMO", demoID, int(state.Step), middleware.ResultSuccess)
	httputil.JSON(w, http.StatusOK, toDemoResponse(state))
}

// ListRuns はデモの実行記録を返す。
func (h *DemoHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	demoID := chi.URLParam(r, "demo_id")
	if err := validateUUID(demoID, domain.ErrInvalidDemoID); err != nil {
		writeError(w, err)
		return
	}

	runs, err := h.service.ListRuns(r.Context(), demoID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := RunListResponse{Runs: make([]RunResponse, len(runs))}
	for i, run := range runs {
		resp.Runs[i] = toRunResponse(run)
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// GetRun は実行記録を1件返す。
func (h *DemoHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if err := validateUUID(runID, domain.ErrRunNotFound); err != nil {
		writeError(w, err)
		return
	}

	run, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toRunResponse(run))
}

// RevealPrivateKey は実行記録に封印されたBobの秘密鍵を復号して返す。
func (h *DemoHandler) RevealPrivateKey(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if err := validateUUID(runID, domain.ErrRunNotFound); err != nil {
		writeError(w, err)
		return
	}

	key, err := h.service.RevealPrivateKey(r.Context(), runID)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "REVEAL_PRIVATE_KEY", "", -1, middleware.ResultFailed)
		writeError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "REVEAL_PRIVATE_KEY", "", -1, middleware.ResultSuccess)
	httputil.JSON(w, http.StatusOK, PrivateKeyJSON{N: key.N, D: key.D})
}
