package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/buildinfo"
	"github.com/soletide/hydrostat/pkg/cache"
	"github.com/soletide/hydrostat/pkg/errors"
	"github.com/soletide/hydrostat/pkg/observability"
	"github.com/soletide/hydrostat/pkg/pipeline"
)

const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		redisStr string
		mongoURI string
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Serve the solve pipeline over HTTP.

Endpoints:
  POST /v1/profiles               solve a model (pipeline options as JSON)
  GET  /v1/profiles/{fingerprint} fetch a cached profile by fingerprint
  GET  /healthz                   liveness check

By default profiles are cached on the local filesystem. Use --redis or
--mongo-uri to share the cache between instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			store, err := serveCache(ctx, noCache, redisStr, mongoURI)
			if err != nil {
				return err
			}
			defer store.Close()

			runner := pipeline.NewRunner(store, nil, logger)
			srv := &apiServer{runner: runner, logger: logger}

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.routes(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			case <-ctx.Done():
				logger.Info("shutting down")
				shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return httpSrv.Shutdown(shutCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&redisStr, "redis", "", "Redis address for a shared cache (host:port)")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB URI for a shared cache")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the profile cache entirely")

	return cmd
}

// serveCache selects the cache backend for the server. Redis wins over Mongo
// when both are given; neither falls back to the local file cache.
func serveCache(ctx context.Context, noCache bool, redisAddr, mongoURI string) (cache.Cache, error) {
	switch {
	case noCache:
		return cache.NewNullCache(), nil
	case redisAddr != "":
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: redisAddr})
	case mongoURI != "":
		return cache.NewMongoCache(ctx, cache.MongoConfig{URI: mongoURI})
	default:
		return newCache(false)
	}
}

// apiServer holds the HTTP handlers.
type apiServer struct {
	runner *pipeline.Runner
	logger *log.Logger
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/profiles", s.handleSolve)
		r.Get("/profiles/{fingerprint}", s.handleGetProfile)
	})
	return r
}

// instrument reports every request to the HTTP hooks and the logger.
func (s *apiServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		observability.HTTP().OnRequest(req.Context(), req.Method, req.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		dur := time.Since(start)
		observability.HTTP().OnResponse(req.Context(), req.Method, req.URL.Path, ww.Status(), dur)
		s.logger.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"duration", dur.Round(time.Millisecond))
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// solveResponse is the POST /v1/profiles response body.
type solveResponse struct {
	RunID       string        `json:"run_id"`
	Fingerprint string        `json:"fingerprint"`
	CacheHit    bool          `json:"cache_hit"`
	Profile     *body.Profile `json:"profile"`
}

func (s *apiServer) handleSolve(w http.ResponseWriter, req *http.Request) {
	var opts pipeline.Options
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode request body"))
		return
	}

	result, err := s.runner.Execute(req.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, solveResponse{
		RunID:       result.RunID,
		Fingerprint: result.Fingerprint,
		CacheHit:    result.CacheInfo.ProfileHit,
		Profile:     result.Profile,
	})
}

func (s *apiServer) handleGetProfile(w http.ResponseWriter, req *http.Request) {
	fp := chi.URLParam(req, "fingerprint")
	data, hit, err := s.runner.Cache.Get(req.Context(), cache.ProfileKey(fp))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeCache, err, "cache read"))
		return
	}
	if !hit {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no profile with fingerprint %q", fp))
		return
	}
	p, err := body.UnmarshalProfile(data)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeCache, err, "decode cached profile"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	var resp errorResponse
	code := errors.GetCode(err)
	resp.Error.Code = string(code)
	resp.Error.Message = errors.UserMessage(err)
	writeJSON(w, statusFor(code), resp)
}

// statusFor maps error codes onto HTTP status codes.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidConstraints, errors.ErrCodeInvalidLayer, errors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeNonConvergence, errors.ErrCodeInfeasible,
		errors.ErrCodeEOSOutOfRange, errors.ErrCodeStepTooSmall:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
