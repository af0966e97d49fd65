package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/fleetward/fleetward/internal/fleet"
	"github.com/fleetward/fleetward/pkg/match"
	"github.com/fleetward/fleetward/pkg/target"
)

// AppServer is the coordinator's HTTP surface: minion heartbeats feed
// the live registry, job submissions run a matching pass and persist the
// dispatch record, and the nodegroup table can be swapped at runtime.
type AppServer struct {
	db       *sql.DB
	engine   *match.Engine
	registry *fleet.Registry
	log      logrus.FieldLogger
}

func NewAppServer(db *sql.DB, engine *match.Engine, registry *fleet.Registry, log logrus.FieldLogger) *AppServer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AppServer{db: db, engine: engine, registry: registry, log: log}
}

// RegisterRoutes wires HTTP handlers.
func (s *AppServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/minions", s.handleMinions)
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/nodegroups", s.handleNodegroups)
}

// ---- Handlers ----

func (s *AppServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *AppServer) handleStats(w http.ResponseWriter, r *http.Request) {
	type statsResp struct {
		Minions      int `json:"minions"`
		Nodegroups   int `json:"nodegroups"`
		CachedParses int `json:"cached_parses"`
	}
	writeJSON(w, http.StatusOK, statsResp{
		Minions:      s.registry.Len(),
		Nodegroups:   len(s.engine.Nodegroups()),
		CachedParses: s.engine.CachedParses(),
	})
}

// handleMinions accepts heartbeats (POST) and lists known minions (GET).
func (s *AppServer) handleMinions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var snap match.Snapshot
		if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		if snap.ID == "" {
			writeErr(w, http.StatusBadRequest, errors.New("missing minion id"))
			return
		}
		s.registry.Upsert(&snap)
		if err := s.upsertMinion(r.Context(), &snap); err != nil {
			s.log.WithFields(logrus.Fields{"minion": snap.ID, "error": err}).
				Error("minion upsert failed")
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": snap.ID})
	case http.MethodGet:
		out, err := s.listMinions(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleJobs runs a matching pass and records the dispatch (POST), or
// lists recent jobs (GET).
func (s *AppServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Target  string `json:"target"`
			Command string `json:"command"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		if req.Target == "" || req.Command == "" {
			writeErr(w, http.StatusBadRequest, errors.New("target and command are required"))
			return
		}
		minions, err := s.engine.SelectTargets(r.Context(), req.Target, s.registry.Snapshots())
		if err != nil {
			writeErr(w, statusForMatchErr(err), err)
			return
		}
		jobID, err := s.insertJob(r.Context(), req.Target, req.Command, minions)
		if err != nil {
			s.log.WithFields(logrus.Fields{"target": req.Target, "error": err}).
				Error("job insert failed")
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		s.log.WithFields(logrus.Fields{
			"job":     jobID,
			"target":  req.Target,
			"matched": len(minions),
		}).Info("job dispatched")
		writeJSON(w, http.StatusOK, map[string]any{
			"job_id":  jobID,
			"target":  req.Target,
			"command": req.Command,
			"minions": minions,
			"count":   len(minions),
		})
	case http.MethodGet:
		limit := 200
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		out, err := s.listJobs(r.Context(), limit)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleNodegroups reads (GET) or atomically replaces (POST) the
// nodegroup table.
func (s *AppServer) handleNodegroups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"nodegroups": s.engine.Nodegroups()})
	case http.MethodPost:
		var req struct {
			Nodegroups map[string]string `json:"nodegroups"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		groups := target.Nodegroups(req.Nodegroups)
		if err := groups.Validate(); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		s.engine.SetNodegroups(groups)
		s.log.WithField("count", len(groups)).Info("nodegroup table replaced")
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "count": len(groups)})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// statusForMatchErr maps targeting failures: configuration mistakes are
// the caller's (400), and a cancelled pass is not a server fault either.
func statusForMatchErr(err error) int {
	switch {
	case errors.Is(err, target.ErrSyntax),
		errors.Is(err, target.ErrUnknownMatcher),
		errors.Is(err, target.ErrUnknownNodegroup):
		return http.StatusBadRequest
	case errors.Is(err, match.ErrCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ---- Helpers ----

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
