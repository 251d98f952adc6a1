// Package api serves the small ops surface used when the bot runs as a
// daemon: a liveness check, the last recorded round and a manual run trigger.
package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/skauge/randomcoffee/internal/config"
	"github.com/skauge/randomcoffee/internal/runner"
)

// Pairing is the part of the runner the API needs.
type Pairing interface {
	Run(ctx context.Context) error
	Running() bool
	LastRound() *runner.Round
}

type API struct {
	router *mux.Router
	config *config.Config
	runner Pairing
}

func New(cfg *config.Config, r Pairing) *API {
	api := &API{
		router: mux.NewRouter(),
		config: cfg,
		runner: r,
	}
	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.router.HandleFunc("/healthz", a.handleHealthz).Methods("GET")
	a.router.HandleFunc("/api/last-round", a.handleLastRound).Methods("GET")
	a.router.HandleFunc("/api/run", a.handleRun).Methods("POST")
}

func (a *API) Start() error {
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	handler := cors.New(corsOptions).Handler(a.router)

	log.Printf("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, handler)
}
