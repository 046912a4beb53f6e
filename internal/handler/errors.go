package handler

import (
	"errors"
	"net/http"

	"rsa-visualizer-service/internal/cipher"
	"rsa-visualizer-service/internal/domain"
	"rsa-visualizer-service/pkg/httputil"
)

// apiError はドメインエラーに対応するHTTPステータスとエラーコード。
type apiError struct {
	status  int
	code    string
	message string
}

var errorTable = []struct {
	target error
	apiError
}{
	{domain.ErrInvalidDemoID, apiError{http.StatusBadRequest, "INVALID_DEMO_ID", "invalid demo ID format"}},
	{domain.ErrInvalidStep, apiError{http.StatusBadRequest, "INVALID_STEP", "step must be between 0 and 4"}},
	{domain.ErrInvalidMessage, apiError{http.StatusBadRequest, "INVALID_MESSAGE", ""}},
	{domain.ErrInvalidKey, apiError{http.StatusBadRequest, "INVALID_KEY", ""}},
	{domain.ErrDemoNotFound, apiError{http.StatusNotFound, "DEMO_NOT_FOUND", "demo not found"}},
	{domain.ErrRunNotFound, apiError{http.StatusNotFound, "RUN_NOT_FOUND", "run not found"}},
	{domain.ErrDemoInProgress, apiError{http.StatusConflict, "DEMO_IN_PROGRESS", "demo is in progress"}},
	{cipher.ErrCodeOutOfRange, apiError{http.StatusUnprocessableEntity, "CODE_OUT_OF_RANGE", ""}},
	{cipher.ErrValueOutOfRange, apiError{http.StatusUnprocessableEntity, "VALUE_OUT_OF_RANGE", ""}},
	{cipher.ErrNoCoprimeExponent, apiError{http.StatusUnprocessableEntity, "NO_COPRIME_EXPONENT", ""}},
	{cipher.ErrNoInverse, apiError{http.StatusUnprocessableEntity, "NO_INVERSE", ""}},
	{domain.ErrTooManyDemos, apiError{http.StatusTooManyRequests, "TOO_MANY_DEMOS", "too many demos"}},
	{domain.ErrSealerUnavailable, apiError{http.StatusServiceUnavailable, "SEALER_UNAVAILABLE", "private key sealing is not configured"}},
}

// classify はerrに対応するapiErrorを返す。messageが空のものはエラー文字列をそのまま返す。
func classify(err error) apiError {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			ae := e.apiError
			if ae.message == "" {
				ae.message = err.Error()
			}
			return ae
		}
	}
	return apiError{http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"}
}

// writeError はerrをエラーレスポンスとして返す。
func writeError(w http.ResponseWriter, err error) {
	ae := classify(err)
	httputil.Error(w, ae.status, ae.code, ae.message)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
}
