// Package api is the HTTP control surface: health, on-demand reports and a
// read-only view of the snapshot log.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"BotHerald/internal/model"
	"BotHerald/internal/scheduler"
)

// Reporter runs reports on demand.
type Reporter interface {
	RunBalanceReport(ctx context.Context, trigger scheduler.Trigger, chatID int64) error
	RunProfitReport(ctx context.Context, trigger scheduler.Trigger, chatID int64) error
}

// SnapshotReader is the read side of the snapshot log.
type SnapshotReader interface {
	ReadLast(n int) ([]model.Snapshot, error)
	Count() (int, error)
}

const (
	defaultTail = 10
	maxTail     = 1000
)

// Server serves the control API.
type Server struct {
	reporter  Reporter
	snapshots SnapshotReader
	chatID    int64
	log       *zap.Logger
	router    *mux.Router
}

// NewServer builds the router. chatID is the destination used when a report
// request does not name one.
func NewServer(reporter Reporter, snapshots SnapshotReader, chatID int64, log *zap.Logger) *Server {
	s := &Server{
		reporter:  reporter,
		snapshots: snapshots,
		chatID:    chatID,
		log:       log.Named("api"),
		router:    mux.NewRouter(),
	}
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/reports/balance", s.handleBalance).Methods("POST")
	s.router.HandleFunc("/reports/profit", s.handleProfit).Methods("POST")
	s.router.HandleFunc("/snapshots", s.handleSnapshots).Methods("GET")
	s.router.HandleFunc("/snapshots/count", s.handleCount).Methods("GET")
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info("http server stopped")
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	s.runReport(w, r, "balance", s.reporter.RunBalanceReport)
}

func (s *Server) handleProfit(w http.ResponseWriter, r *http.Request) {
	s.runReport(w, r, "profit", s.reporter.RunProfitReport)
}

func (s *Server) runReport(w http.ResponseWriter, r *http.Request, kind string,
	run func(context.Context, scheduler.Trigger, int64) error) {
	chatID := s.chatID
	if v := r.URL.Query().Get("chat_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "chat_id must be an integer")
			return
		}
		chatID = id
	}

	err := run(r.Context(), scheduler.TriggerHTTP, chatID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"status": "sent", "report": kind, "chat_id": chatID})
	case errors.Is(err, scheduler.ErrNothingToReport):
		writeJSON(w, http.StatusOK, map[string]any{"status": "empty", "report": kind, "chat_id": chatID})
	case errors.Is(err, scheduler.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Warn("on-demand report failed", zap.String("report", kind), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	n := defaultTail
	if v := r.URL.Query().Get("last"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > maxTail {
			writeError(w, http.StatusBadRequest, "last must be between 1 and 1000")
			return
		}
		n = parsed
	}

	snaps, err := s.snapshots.ReadLast(n)
	if errors.Is(err, os.ErrNotExist) {
		snaps, err = []model.Snapshot{}, nil
	}
	if err != nil {
		s.log.Error("read snapshots", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read snapshots")
		return
	}
	if snaps == nil {
		snaps = []model.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleCount(w http.ResponseWriter, _ *http.Request) {
	n, err := s.snapshots.Count()
	if err != nil {
		s.log.Error("count snapshots", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to count snapshots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
