package httpserver

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"customer-service/internal/auth"
	"customer-service/internal/domain"
	"customer-service/internal/observability"
	authsvc "customer-service/internal/service/auth"
	customersvc "customer-service/internal/service/customer"
	"customer-service/internal/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type customerService interface {
	Find(ctx context.Context, user *domain.Principal, id int64) (*domain.Customer, error)
	FindByEmail(ctx context.Context, user *domain.Principal, email string) (*domain.Customer, error)
	Insert(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	Update(ctx context.Context, user *domain.Principal, c domain.Customer) (*domain.Customer, error)
	Delete(ctx context.Context, user *domain.Principal, id int64) error
	FindAll(ctx context.Context) ([]domain.Customer, error)
	FindPage(ctx context.Context, page, linesPerPage int, orderBy, direction string) (domain.Page[domain.Customer], error)
	FromDTO(in customersvc.NewCustomerInput) (domain.Customer, error)
	FromUpdateDTO(id int64, in customersvc.UpdateInput) domain.Customer
	ValidateNew(ctx context.Context, in customersvc.NewCustomerInput) error
	ValidateUpdate(ctx context.Context, id int64, in customersvc.UpdateInput) error
	UploadProfilePicture(ctx context.Context, user *domain.Principal, data []byte) (*url.URL, error)
}

type authService interface {
	Login(ctx context.Context, email, password string) (authsvc.Token, error)
	Refresh(ctx context.Context, p *domain.Principal) (authsvc.Token, error)
}

type fileSource interface {
	Get(key string) (storage.Object, bool)
}

// Deps are the services the router dispatches to. Metrics and Files are optional.
type Deps struct {
	CustomerSvc customerService
	AuthSvc     authService
	Tokens      *auth.TokenManager
	Metrics     *observability.Metrics
	// Files serves uploaded objects when storage is kept in process.
	Files fileSource
}

// Options tune cross-cutting router and listener behaviour. Zero values
// take the defaults from withDefaults.
type Options struct {
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration

	// Listener timeouts. WriteTimeout is raised above RequestTimeout when
	// shorter, otherwise handlers would be cut off mid-response.
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.ReadHeaderTimeout <= 0 {
		o.ReadHeaderTimeout = 5 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 30 * time.Second
	}
	if o.WriteTimeout <= o.RequestTimeout {
		o.WriteTimeout = o.RequestTimeout + 5*time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 60 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	return o
}

var registerTagNames sync.Once

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db pinger, deps Deps, opts Options) (*gin.Engine, error) {
	if deps.CustomerSvc == nil || deps.AuthSvc == nil || deps.Tokens == nil {
		return nil, errors.New("httpserver: customer service, auth service and token manager are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	registerTagNames.Do(useJSONFieldNames)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		observability.RequestID(),
		observability.GinLogger(logger),
		gin.Recovery(),
		cors.New(corsConfig(opts.CORSAllowedOrigins)),
	)
	if deps.Metrics != nil {
		router.Use(deps.Metrics.GinMiddleware())
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{customers: deps.CustomerSvc, auth: deps.AuthSvc, logger: logger, timeout: opts.RequestTimeout}

	api := router.Group("/")
	api.Use(auth.Middleware(deps.Tokens, logger))

	api.POST("/login", h.login)
	api.POST("/auth/refresh_token", auth.RequireAuthenticated(), h.refreshToken)

	clientes := api.Group("/clientes")
	clientes.POST("", h.createCustomer)
	clientes.GET("/email", h.findCustomerByEmail)
	clientes.POST("/picture", auth.RequireAuthenticated(), h.uploadPicture)
	clientes.GET("/page", auth.RequireRole(domain.RoleAdmin), h.findCustomerPage)
	clientes.GET("", auth.RequireRole(domain.RoleAdmin), h.findAllCustomers)
	clientes.GET("/:id", h.findCustomer)
	clientes.PUT("/:id", h.updateCustomer)
	clientes.DELETE("/:id", auth.RequireRole(domain.RoleAdmin), h.deleteCustomer)

	if deps.Files != nil {
		router.GET("/files/:key", fileHandler(deps.Files))
	}

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Authorization", "Location", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// useJSONFieldNames makes binding errors name fields the way clients send them.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
