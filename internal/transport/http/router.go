package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/NaikDeepak/village-mandi-sub001/internal/clock"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
	"github.com/NaikDeepak/village-mandi-sub001/internal/metrics"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Version            string
	Rules              domain.SystemRules
	CORSOrigins        []string
	CookieSecure       bool
	RateLimitPerMinute int

	Auth     AuthAPI
	Catalog  CatalogAPI
	Batches  BatchAPI
	Orders   OrderAPI
	Payments PaymentRecorder
	Tokens   TokenVerifier

	Clock   clock.Clock
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

// NewRouter builds the API handler: routes plus request logging, CORS and
// the per-client rate limit.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}

	authn := NewAuthenticator(cfg.Tokens)
	authH := NewAuthHandler(cfg.Auth, cfg.CookieSecure, logger)
	catalogH := NewCatalogHandler(cfg.Catalog, logger)
	batchH := NewBatchHandler(cfg.Batches, logger)
	orderH := NewOrderHandler(cfg.Orders, cfg.Payments, logger)

	admin := func(h http.HandlerFunc) http.Handler { return authn.RequireAdmin(h) }
	signedIn := func(h http.HandlerFunc) http.Handler { return authn.RequireAuth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler(cfg.Version, cfg.Rules))
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics.Handler())
	}

	mux.HandleFunc("/api/auth/register", authH.Register)
	mux.HandleFunc("/api/auth/login", authH.Login)
	mux.HandleFunc("/api/auth/logout", authH.Logout)
	mux.HandleFunc("/api/auth/firebase", authH.Firebase)
	mux.Handle("/api/auth/me", signedIn(authH.Me))

	mux.Handle("/api/admin/hubs", admin(catalogH.Hubs))
	mux.Handle("/api/admin/farmers", admin(catalogH.Farmers))
	mux.Handle("/api/admin/farmers/", admin(catalogH.Farmer))
	mux.Handle("/api/admin/products", admin(catalogH.Products))
	mux.Handle("/api/admin/products/", admin(catalogH.Product))
	mux.Handle("/api/admin/stats", admin(catalogH.Stats))
	mux.Handle("/api/admin/batches", admin(batchH.AdminBatches))
	mux.Handle("/api/admin/batches/", admin(batchH.AdminBatch))
	mux.Handle("/api/admin/orders", admin(orderH.AdminOrders))
	mux.Handle("/api/admin/orders/", admin(orderH.AdminOrder))

	mux.Handle("/api/batches", signedIn(batchH.OpenBatches))
	mux.Handle("/api/batches/", signedIn(batchH.Batch))
	mux.Handle("/api/orders", signedIn(orderH.Orders))
	mux.Handle("/api/orders/", signedIn(orderH.Order))

	mux.Handle("/", NotFoundHandler(logger))

	limiter := NewRateLimiter(cfg.RateLimitPerMinute, clk, cfg.Metrics)
	return RequestLogger(CORS(cfg.CORSOrigins, limiter.Middleware(mux)), logger, cfg.Metrics)
}
