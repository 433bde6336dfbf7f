package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/redcorridor/intel-cli/internal/adapter"
	"github.com/redcorridor/intel-cli/internal/ingest"
	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/query"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read API and the report ingestion endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		worker := ingest.NewWorker(env.Pipeline, cfg.Server.QueueDepth)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env, worker),
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *engine, worker *ingest.Worker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/people", func(w http.ResponseWriter, _ *http.Request) {
		people := env.Query.PeopleByIncidentCount()
		if people == nil {
			people = []query.PersonSummary{}
		}
		writeJSON(w, http.StatusOK, people)
	})

	r.Get("/incidents", func(w http.ResponseWriter, req *http.Request) {
		typ := req.URL.Query().Get("type")
		if typ == "" {
			typ = string(model.MentionCriminalActivity)
		}
		mt := model.MentionType(typ)
		if !mt.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown incident type " + typ})
			return
		}
		incidents := env.Query.IncidentsByType(mt)
		if incidents == nil {
			incidents = []*model.Incident{}
		}
		writeJSON(w, http.StatusOK, incidents)
	})

	r.Get("/rollup", func(w http.ResponseWriter, _ *http.Request) {
		rollup := env.Query.AreaCommitteeRollup()
		if rollup == nil {
			rollup = []query.AreaRollup{}
		}
		writeJSON(w, http.StatusOK, rollup)
	})

	r.Post("/reports", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ReportID string         `json:"report_id"`
			Filename string         `json:"filename"`
			Data     map[string]any `json:"data"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.ReportID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "report_id is required"})
			return
		}

		rec, err := adapter.ParseRecord(body.ReportID, body.Filename, time.Now().UTC(), body.Data)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		if err := worker.Enqueue(rec); err != nil {
			if eris.Is(err, ingest.ErrQueueFull) {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ingestion queue full"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":    "accepted",
			"report_id": body.ReportID,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}
