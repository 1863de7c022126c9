package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/dispatch/internal/api"
	"github.com/JaimeStill/dispatch/internal/config"
	"github.com/JaimeStill/dispatch/internal/infrastructure"
	"github.com/JaimeStill/dispatch/pkg/metrics"
	"github.com/JaimeStill/dispatch/pkg/module"
)

func mountModules(router *module.Router, cfg *config.Config, infra *infrastructure.Infrastructure) error {
	apiModule, err := api.NewModule(infra.Lifecycle.Context(), cfg, infra)
	if err != nil {
		return err
	}
	return router.Mount(apiModule)
}

type probe struct {
	Status  string          `json:"status"`
	Systems map[string]bool `json:"systems,omitempty"`
}

func registerProbes(router *module.Router, infra *infrastructure.Infrastructure) {
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, http.StatusOK, probe{Status: "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		p := probe{Status: "ready", Systems: infra.Lifecycle.Status()}
		if !infra.Lifecycle.Ready() {
			p.Status = "not ready"
			writeProbe(w, http.StatusServiceUnavailable, p)
			return
		}
		writeProbe(w, http.StatusOK, p)
	})

	router.HandleNative("GET /metrics", metrics.Handler().ServeHTTP)
}

func writeProbe(w http.ResponseWriter, status int, p probe) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(p)
}
