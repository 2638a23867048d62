// Package httpapi assembles the HTTP surface: public verification and
// health endpoints, the Prometheus scrape target, and the authenticated
// tenant API.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	assethandler "certitrack/internal/asset/handler"
	certhandler "certitrack/internal/certificate/handler"
	insphandler "certitrack/internal/inspection/handler"
	"certitrack/internal/platform/middleware"
	"certitrack/internal/transport/http/shared"
)

// Deps carries everything the router mounts.
type Deps struct {
	Assets       *assethandler.Handler
	Tests        *insphandler.Handler
	Certificates *certhandler.Handler
	JWTValidator middleware.JWTValidator
	Logger       *slog.Logger
}

// NewRouter wires the full route tree. The verification endpoint stays
// outside the auth stack so anyone holding a certificate number can check
// it.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	deps.Certificates.RegisterPublic(r)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))
		deps.Assets.Register(api)
		deps.Tests.Register(api)
		deps.Certificates.Register(api)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
