package stubapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lingopocket/lingopocket/internal/middleware"
)

// NewRouter constructs the stub API handler.
//
// Routes:
//
//	POST /v1/chat/completions   → ChatCompletions
//	POST /v1/audio/translations → AudioTranslations
//	POST /v1/audio/speech       → Speech
//
// Every route requires the configured bearer key. JSON routes reject
// non-JSON bodies; the audio translation route takes multipart uploads.
func NewRouter(apiKey string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.BearerAuth(apiKey))

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/chat/completions", ChatCompletions)
			r.Post("/audio/speech", Speech)
		})
		r.Post("/audio/translations", AudioTranslations)
	})

	return r
}
