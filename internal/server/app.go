// Package server assembles the collections, module handlers and middleware
// into one HTTP application.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pcbaerp/internal/audit"
	"pcbaerp/internal/config"
	"pcbaerp/internal/handlers/accounting"
	"pcbaerp/internal/handlers/common"
	"pcbaerp/internal/handlers/customs"
	"pcbaerp/internal/handlers/dashboard"
	"pcbaerp/internal/handlers/hr"
	"pcbaerp/internal/handlers/planning"
	"pcbaerp/internal/handlers/production"
	"pcbaerp/internal/handlers/purchase"
	"pcbaerp/internal/handlers/quality"
	"pcbaerp/internal/handlers/settings"
	"pcbaerp/internal/handlers/shipping"
	"pcbaerp/internal/handlers/traceability"
	"pcbaerp/internal/handlers/warehouse"
	"pcbaerp/internal/ids"
	"pcbaerp/internal/insight"
	"pcbaerp/internal/metrics"
	"pcbaerp/internal/response"
	"pcbaerp/internal/store"
	"pcbaerp/internal/store/sqlite"
	"pcbaerp/internal/websocket"
)

// App holds shared dependencies for the application.
type App struct {
	Log     *zap.Logger
	Data    *Collections
	DB      *sqlite.DB
	Metrics *metrics.Metrics
	Hub     *websocket.Hub
	Insight *insight.Fetcher
	Audit   *audit.Logger
	Limiter *RateLimiter
	IDs     *ids.Generator

	Planning     *planning.Handler
	Purchase     *purchase.Handler
	Warehouse    *warehouse.Handler
	Production   *production.Handler
	Quality      *quality.Handler
	Traceability *traceability.Handler
	Accounting   *accounting.Handler
	Shipping     *shipping.Handler
	Customs      *customs.Handler
	HR           *hr.Handler
	Settings     *settings.Handler
	Dashboard    *dashboard.Handler

	mu  sync.RWMutex
	cfg *config.Config
}

// Options are the collaborators New does not build itself.
type Options struct {
	Log *zap.Logger
	// DB is the snapshot database the collections were bound to, if any.
	DB *sqlite.DB
	// Generator backs AI insights. nil serves the offline fallback text.
	Generator insight.Generator
	// Now overrides the clock used for form defaults and new ids.
	Now func() time.Time
}

// New wires the handlers over data and attaches the change observers.
func New(cfg *config.Config, data *Collections, opts Options) *App {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	m := metrics.New()
	a := &App{
		Log:     log,
		Data:    data,
		DB:      opts.DB,
		Metrics: m,
		Hub:     websocket.NewHub(log.Named("ws")),
		Limiter: NewRateLimiter(cfg.Server.RateLimit, time.Minute),
		IDs:     ids.New(),
		cfg:     cfg,
	}
	if opts.Now != nil {
		a.IDs = ids.NewWithClock(opts.Now)
	}
	a.Hub.OnCount = func(n int) { m.WSClients.Set(float64(n)) }
	a.Insight = insight.NewFetcher(opts.Generator,
		insight.WithTimeout(cfg.InsightTimeout()),
		insight.WithLogger(log.Named("insight")),
		insight.WithOutcomes(m.InsightOutcomes),
	)
	a.Audit = audit.NewLogger(data.SystemLogs, log.Named("audit"))
	data.Keys(a.IDs.Observe)

	env := common.Env{
		Log:           log,
		Audit:         a.Audit,
		IDs:           a.IDs,
		DraftCapacity: cfg.Drafts.Capacity,
		DraftTTL:      cfg.DraftTTL(),
		Now:           opts.Now,
	}
	a.Planning = planning.New(env, data.WorkOrders)
	a.Purchase = purchase.New(env, data.PurchaseOrders)
	a.Warehouse = warehouse.New(env, data.Materials)
	a.Production = production.New(env, data.ProductionLogs, data.WorkOrders)
	a.Quality = quality.New(env, data.Defects, a.Insight)
	a.Accounting = accounting.New(env, data.Transactions)
	a.Shipping = shipping.New(env, data.Shipments, data.WorkOrders)
	a.Customs = customs.New(env, data.Declarations)
	a.HR = hr.New(env, data.Employees)
	a.Traceability = &traceability.Handler{
		Logs:       data.ProductionLogs,
		Defects:    data.Defects,
		WorkOrders: data.WorkOrders,
		Shipments:  data.Shipments,
		Audit:      a.Audit,
	}
	a.Settings = settings.New(env, data.SystemLogs, a.Config)
	a.Settings.Status = a.integrationStatus
	a.Dashboard = &dashboard.Handler{
		Insight: a.Insight,
		Company: func() string { return a.Config().CompanyName },
	}

	a.Audit.Modules = map[string]string{
		CollWorkOrders:     a.Planning.Module,
		CollPurchaseOrders: a.Purchase.Module,
		CollMaterials:      a.Warehouse.Module,
		CollProductionLogs: a.Production.Module,
		CollDefects:        a.Quality.Module,
		CollTransactions:   a.Accounting.Module,
		CollShipments:      a.Shipping.Module,
		CollDeclarations:   a.Customs.Module,
		CollEmployees:      a.HR.Module,
	}

	for name, n := range data.Counts(context.Background()) {
		m.SetRecords(name, n)
	}
	data.Observe(a.Hub.ObserveChange)
	data.Observe(a.Audit.ObserveChange)
	data.Observe(m.ObserveChange)
	data.Observe(func(ctx context.Context, c store.Change) {
		m.SetRecords(c.Collection, data.Count(ctx, c.Collection))
	})
	return a
}

// Config returns the current configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Reload applies the settings that can change without a restart: company
// name, rate limit and insight timeout. The AI generator is swapped by the
// caller since building one needs network access.
func (a *App) Reload(cfg *config.Config) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	a.Limiter.SetLimit(cfg.Server.RateLimit)
	a.Insight.SetTimeout(cfg.InsightTimeout())
	a.Log.Info("configuration applied",
		zap.String("company", cfg.CompanyName),
		zap.Int("rate_limit", cfg.Server.RateLimit),
		zap.Duration("insight_timeout", cfg.InsightTimeout()),
	)
}

func (a *App) integrationStatus(ctx context.Context) settings.IntegrationStatus {
	return settings.IntegrationStatus{
		Insight:          a.Insight.Configured(),
		Persistent:       a.DB != nil,
		WebsocketClients: a.Hub.Len(),
		Records:          a.Data.Counts(ctx),
	}
}

// Exportables maps each resource path to its exporter.
func (a *App) Exportables() map[string]common.Exportable {
	return map[string]common.Exportable{
		a.Planning.Path:      a.Planning.Resource,
		a.Purchase.Path:      a.Purchase.Resource,
		a.Warehouse.Path:     a.Warehouse.Resource,
		a.Production.Path:    a.Production.Resource,
		a.Quality.Path:       a.Quality.Resource,
		a.Accounting.Path:    a.Accounting.Resource,
		a.Shipping.Path:      a.Shipping.Resource,
		a.Customs.Path:       a.Customs.Resource,
		a.HR.Path:            a.HR.Resource,
		a.Settings.Logs.Path: a.Settings.Logs,
	}
}

// Router builds the HTTP handler.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	r.Use(CORSMiddleware)
	r.Use(LoggingMiddleware(a.Log.Named("http"), a.Metrics))
	r.Use(GzipMiddleware)
	r.Use(RateLimitMiddleware(a.Limiter))
	r.Use(OperatorMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.Health)
		r.Get("/search", common.GlobalSearch(
			a.Planning, a.Purchase, a.Warehouse, a.Production, a.Quality,
			a.Accounting, a.Shipping, a.Customs, a.HR,
		))
		a.Dashboard.RegisterRoutes(r)
		a.Planning.RegisterRoutes(r)
		a.Purchase.RegisterRoutes(r)
		a.Warehouse.RegisterRoutes(r)
		a.Production.RegisterRoutes(r)
		a.Quality.RegisterRoutes(r)
		a.Traceability.RegisterRoutes(r)
		a.Accounting.RegisterRoutes(r)
		a.Shipping.RegisterRoutes(r)
		a.Customs.RegisterRoutes(r)
		a.HR.RegisterRoutes(r)
		a.Settings.RegisterRoutes(r)
	})
	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	r.Method(http.MethodGet, "/ws", a.Hub)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.ErrCode(w, "not found", response.CodeNotFound, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Err(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status     string         `json:"status"`
	Persistent bool           `json:"persistent"`
	Records    map[string]int `json:"records"`
	Clients    int            `json:"websocket_clients"`
}

// Health handles GET /api/v1/health. A failing snapshot database reports 503.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	h := HealthStatus{
		Status:     "ok",
		Persistent: a.DB != nil,
		Records:    a.Data.Counts(r.Context()),
		Clients:    a.Hub.Len(),
	}
	if a.DB != nil {
		if err := a.DB.Ping(r.Context()); err != nil {
			a.Log.Warn("snapshot database unreachable", zap.Error(err))
			response.ErrCode(w, "snapshot database unreachable", response.CodeUnavailable, http.StatusServiceUnavailable)
			return
		}
	}
	response.JSON(w, h)
}
