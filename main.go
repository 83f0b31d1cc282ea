package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/CoePress/coesco-web/internal/auth"
	"github.com/CoePress/coesco-web/internal/autofill"
	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/calc/engines"
	"github.com/CoePress/coesco-web/internal/calc/report"
	"github.com/CoePress/coesco-web/internal/config"
	"github.com/CoePress/coesco-web/internal/configs"
	"github.com/CoePress/coesco-web/internal/logging"
	"github.com/CoePress/coesco-web/internal/lookup"
	"github.com/CoePress/coesco-web/internal/metrics"
	"github.com/CoePress/coesco-web/internal/repo"
	"github.com/CoePress/coesco-web/internal/sheet"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var wg sync.WaitGroup

type server struct {
	settings config.Settings
	env      calc.Env
	store    repo.Repository
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func CORS(mux *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLog puts the logger in the request context and records every request.
func (s *server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(s.log.WithContext(r.Context())))

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.HTTP(route, strconv.Itoa(rec.status))
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *server) lookupHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, err := s.env.Tables.Resolve(vars["table"], vars["key"])
	if err != nil {
		var uk *lookup.UnknownKeyError
		if errors.As(err, &uk) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		calc.WriteError(w, err)
		return
	}
	calc.WriteJSON(w, http.StatusOK, rec)
}

func (s *server) calcHandler(w http.ResponseWriter, r *http.Request) {
	h, ok := engines.Handler(s.env, mux.Vars(r)["section"])
	if !ok {
		http.Error(w, "Unknown section", http.StatusNotFound)
		return
	}
	h(w, r)
}

func HandleList(router *mux.Router, s *server) {
	engine := autofill.New(s.env,
		autofill.WithLogger(logging.Component(s.log, "autofill")),
		autofill.WithMetrics(s.metrics))

	authEnv := &auth.Authenv{
		TokenKey:   []byte(s.settings.TokenKey),
		APIKeyHash: s.settings.APIKeyHash,
		Log:        logging.Component(s.log, "auth"),
	}
	if s.settings.TokenKey == "" {
		s.log.Warn().Msg("TOKEN_KEY is not set, configuration writes are disabled")
	}

	autofillH := &autofill.Handler{Engine: engine}
	sheetH := &sheet.Handler{Engine: engine, Log: logging.Component(s.log, "sheet")}
	reportH := &report.Handler{Log: logging.Component(s.log, "report")}
	configsH := &configs.Handler{Repo: s.store, Log: logging.Component(s.log, "configs")}

	limiter := auth.NewIPRateLimiter(rate.Limit(s.settings.RateLimit), s.settings.RateBurst)

	router.Use(s.requestLog)
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		calc.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": autofill.Version})
	}).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)

	api.HandleFunc("/token", authEnv.TokenHandler).Methods("POST")
	api.HandleFunc("/autofill", autofillH.Autofill).Methods("POST")
	api.HandleFunc("/autofill/batch", autofillH.Batch).Methods("POST")
	api.HandleFunc("/calc/{section}", s.calcHandler).Methods("POST")
	api.HandleFunc("/lookup/{table}/{key}", s.lookupHandler).Methods("GET")
	api.HandleFunc("/import", sheetH.Import).Methods("POST")
	api.HandleFunc("/report/pdf", reportH.Generate).Methods("POST")

	api.HandleFunc("/configs", configsH.List).Methods("GET")
	api.HandleFunc("/configs/{ref}", configsH.Get).Methods("GET")

	secureApi := api.PathPrefix("/configs").Subrouter()
	secureApi.Use(authEnv.Middleware)
	secureApi.HandleFunc("/{ref}", configsH.Put).Methods("PUT")
	secureApi.HandleFunc("/{ref}", configsH.Delete).Methods("DELETE")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	settings, err := config.FromEnv()
	if err != nil {
		bootLog := logging.New(logging.Options{})
		bootLog.Fatal().Err(err).Msg("load settings")
	}
	log := logging.New(logging.Options{Level: settings.LogLevel, Format: settings.LogFormat})

	engineCfg, err := config.LoadEngine(settings.EngineConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("load engine config")
	}
	tables, err := lookup.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("load lookup tables")
	}

	store, err := repo.Open(ctx, settings.Store, settings.DatabaseURL, settings.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Str("store", settings.Store).Msg("open store")
	}
	defer store.Close()

	s := &server{
		settings: settings,
		env:      calc.Env{Tables: tables, Config: engineCfg},
		store:    store,
		metrics:  metrics.New(),
		log:      log,
	}
	router := mux.NewRouter()
	HandleList(router, s)

	httpServer := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           CORS(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", httpServer.Addr).Str("store", settings.Store).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, closing active connections")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server shutdown")
	}
	wg.Wait()
	log.Info().Msg("server stopped")
}
