package api

import (
	"net/http"

	"github.com/JaimeStill/shiftmatch/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	routes.Register(
		mux,
		domain.Events.Handler(runtime.MaxImportSize).Routes(),
		domain.Shifts.Handler(runtime.MaxImportSize).Routes(),
		domain.Matches.Handler().Routes(),
		domain.Runs.Handler().Routes(),
	)
}
