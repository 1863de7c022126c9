package api

import (
	"net/http"

	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/pipeline"
	"github.com/JaimeStill/dispatch/internal/weather"
	"github.com/JaimeStill/dispatch/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Documents.Handler(runtime.MaxUploadSize).Routes(),
		domain.Prompts.Handler().Routes(),
		domain.Runs.Handler().Routes(),
		pipeline.NewHandler(domain.Pipeline).Routes(),
		index.NewHandler(runtime.Index, runtime.Logger).Routes(),
		weather.NewHandler(runtime.Weather, runtime.Logger).Routes(),
	)
}
