package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/skauge/randomcoffee/internal/runner"
)

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (a *API) handleLastRound(w http.ResponseWriter, r *http.Request) {
	round := a.runner.LastRound()
	if round == nil {
		http.Error(w, "no round recorded yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(round)
}

// handleRun kicks off a round outside the schedule. The run itself can take
// minutes because of API rate limits, so it happens in the background and the
// handler only reports that it started.
func (a *API) handleRun(w http.ResponseWriter, r *http.Request) {
	if a.config.AdminToken == "" || bearerToken(r) != a.config.AdminToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if a.runner.Running() {
		http.Error(w, "a run is already in progress", http.StatusConflict)
		return
	}

	go func() {
		if err := a.runner.Run(context.Background()); err != nil && !errors.Is(err, runner.ErrRunInProgress) {
			log.Printf("Manual run failed: %v", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"message": "run started"})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
