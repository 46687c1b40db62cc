// Command bufrsrv is the HTTP decode/query service (component N):
// POST a BUFR message, get back its decoded tree (optionally filtered
// by a path query) as JSON. Grounded on
// ClusterCockpit-cc-backend/cmd/cc-backend/main.go's router assembly
// (gorilla/mux root router, gorilla/handlers middleware stack,
// CustomLoggingHandler writing through this module's own leveled
// logger) and its use of github.com/prometheus/client_golang for
// metrics (the pack only exercises that dependency as a Prometheus
// *query* client in internal/metricdata/prometheus.go; the
// self-instrumentation idiom here — promauto + promhttp.Handler — is
// the same module's standard counterpart, not a different library).
package main

import (
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dsnet/bufr/bufr"
	"github.com/dsnet/bufr/config"
	"github.com/dsnet/bufr/internal/applog"
	"github.com/dsnet/bufr/query"
	"github.com/dsnet/bufr/tables"
)

var (
	decodeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bufrsrv_decode_requests_total",
		Help: "Total /decode requests, labeled by outcome.",
	}, []string{"outcome"})
	decodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "bufrsrv_decode_duration_seconds",
		Help: "Time spent decoding a BUFR message per request.",
	})
)

func main() {
	envFile := flag.String("env-file", ".env", "optional .env configuration file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		applog.Errorf("loading configuration: %v", err)
		return
	}

	store, err := cfg.OpenStore()
	if err != nil {
		applog.Errorf("opening table store: %v", err)
		return
	}

	srv := &server{store: store}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", srv.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/decode", srv.handleDecode).Methods(http.MethodPost)
	r.HandleFunc("/query", srv.handleQuery).Methods(http.MethodPost)
	if cfg.MetricsAddr == "" {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))
	r.Use(handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowedMethods([]string{"GET", "POST"}),
		handlers.AllowedOrigins([]string{"*"})))
	logged := handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
		applog.Infof("%s %s (%d, %dms)", params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, time.Since(params.TimeStamp).Milliseconds())
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      logged,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mr := mux.NewRouter()
			mr.Handle("/metrics", promhttp.Handler())
			applog.Infof("metrics listening on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mr); err != nil {
				applog.Errorf("metrics server: %v", err)
			}
		}()
	}

	applog.Infof("bufrsrv listening on %s", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		applog.Errorf("server exited: %v", err)
	}
}

type server struct {
	store tables.Store
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// decodeRequest is the body of POST /decode and POST /query: raw BUFR
// bytes, base64-encoded by encoding/json's []byte handling.
type decodeRequest struct {
	Message []byte `json:"message"`
	Path    string `json:"path,omitempty"`
	Filter  string `json:"filter,omitempty"`
}

func (s *server) handleDecode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeTotal.WithLabelValues("bad_request").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := bufr.Decode(s.store, req.Message)
	decodeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		decodeTotal.WithLabelValues("decode_error").Inc()
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	decodeTotal.WithLabelValues("ok").Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		http.Error(w, "missing \"path\"", http.StatusBadRequest)
		return
	}

	msg, err := bufr.Decode(s.store, req.Message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	path, err := query.ParsePath(req.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	nodes := path.Eval(msg.Root.Children)

	if req.Filter != "" {
		f, err := query.CompileFilter(req.Filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		nodes, err = f.Filter(nodes)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(nodes)
}
