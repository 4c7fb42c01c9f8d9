package controllers

import (
	"net/http"

	"github.com/vikramrao-dev/tiffinbox-backend/api/responses"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/config"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db"
	pkgerrors "github.com/vikramrao-dev/tiffinbox-backend/pkg/errors"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TiffinBox-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness, pinging the datasource when one is wired.
func HealthReady(cfg *config.Config, pinger db.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TiffinBox-Env", cfg.App.Env)
		if pinger != nil {
			if err := pinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
