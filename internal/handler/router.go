package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rsa-visualizer-service/config"
	"rsa-visualizer-service/pkg/httputil"
)

// NewRouter はルーターを生成する。OTEL_ENABLEDの場合はotelhttpで計装する。
func NewRouter(demo *DemoHandler, cipher *CipherHandler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/keypairs", cipher.GenerateKeyPair)
		r.Post("/encrypt", cipher.Encrypt)
		r.Post("/decrypt", cipher.Decrypt)
		r.Get("/stages", cipher.ListStages)

		r.Route("/demos", func(r chi.Router) {
			r.Post("/", demo.CreateDemo)
			r.Route("/{demo_id}", func(r chi.Router) {
				r.Get("/", demo.GetDemo)
				r.Delete("/", demo.DeleteDemo)
				r.Put("/message", demo.SetMessage)
				r.Post("/steps/{step}", demo.RunStep)
				r.Post("/run", demo.RunFullDemo)
				r.Post("/reset", demo.ResetDemo)
				r.Get("/runs", demo.ListRuns)
			})
		})

		r.Get("/runs/{run_id}", demo.GetRun)
		r.Get("/runs/{run_id}/private-key", demo.RevealPrivateKey)
	})

	if cfg != nil && cfg.OtelEnabled {
		return otelhttp.NewHandler(r, cfg.OtelServiceName)
	}
	return r
}
