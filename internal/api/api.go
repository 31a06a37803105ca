package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"RiskSentinel/internal/holdings"
	"RiskSentinel/internal/lock"
	"RiskSentinel/internal/model"
	"RiskSentinel/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ScanRunner runs one scan.
type ScanRunner interface {
	Run(ctx context.Context, req pipeline.ScanRequest) (pipeline.ScanReport, error)
}

// RiskRunner runs one monitoring cycle and owns the holdings.
type RiskRunner interface {
	RunCycle(ctx context.Context) (pipeline.RiskReport, error)
	Holdings() holdings.Store
}

// API serves the read-only report surface plus holdings maintenance.
type API struct {
	Scanner ScanRunner
	Monitor RiskRunner
	logger  *zap.Logger
}

// New creates the API.
func New(scanner ScanRunner, monitor RiskRunner, logger *zap.Logger) *API {
	return &API{Scanner: scanner, Monitor: monitor, logger: logger.With(zap.String("component", "api"))}
}

// Router builds the chi router.
func (api *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(api.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"ok":   true,
			"time": time.Now().UTC(),
		})
	})
	r.Get("/screen/daily", api.HandleScreen)
	r.Get("/risk/scan", api.HandleRiskScan)
	r.Get("/holdings", api.HandleGetHoldings)
	r.Put("/holdings", api.HandlePutHoldings)
	return r
}

func (api *API) HandleScreen(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ScanRequest
	if v := r.URL.Query().Get("topn"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "topn must be a positive integer")
			return
		}
		req.TopN = n
	}
	req.Style = r.URL.Query().Get("style")

	report, err := api.Scanner.Run(r.Context(), req)
	if err != nil {
		api.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

func (api *API) HandleRiskScan(w http.ResponseWriter, r *http.Request) {
	report, err := api.Monitor.RunCycle(r.Context())
	if err != nil {
		api.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

func (api *API) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	items, err := api.Monitor.Holdings().Load(r.Context())
	if err != nil {
		api.fail(w, err)
		return
	}
	if items == nil {
		items = []model.Holding{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"holdings": items})
}

// HandlePutHoldings replaces the holdings list. The body is either a JSON
// array of holdings or, with Content-Type text/plain, the line format used by
// the chat command.
func (api *API) HandlePutHoldings(w http.ResponseWriter, r *http.Request) {
	var items []model.Holding
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		raw, err := io.ReadAll(body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		parsed, err := holdings.ParseLines(string(raw))
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		items = parsed
	} else if err := json.NewDecoder(body).Decode(&items); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := holdings.Validate(items); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := api.Monitor.Holdings().Save(r.Context(), items); err != nil {
		api.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"holdings": items, "count": len(items)})
}

func (api *API) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidConfiguration):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lock.ErrLocked):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrDataUnavailable):
		WriteError(w, http.StatusBadGateway, err.Error())
	default:
		api.logger.Error("request failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func (api *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		api.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
