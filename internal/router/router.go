package router

import (
	"bancas/internal/config"
	"bancas/internal/engine"
	"bancas/internal/handler"
	"bancas/internal/infra"
	"bancas/internal/metrics"
	"bancas/internal/middleware"
	"bancas/internal/model"
	"bancas/internal/repository"
	"bancas/internal/service"
	"bancas/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators built by the composition root.
type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	Locker     infra.TicketLocker
	Dispatcher *worker.Dispatcher
	EventsCB   *infra.CircuitBreaker
	Sorteos    service.SorteoService
	Limiter    *middleware.RateLimiter
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler())

	// ── Repositories ─────────────────────────────────────────────────────────
	ticketRepo := repository.NewTicketRepository(d.DB)
	pagoRepo := repository.NewPagoRepository(d.DB)
	sorteoRepo := repository.NewSorteoRepository(d.DB)
	restriccionRepo := repository.NewRestriccionRepository(d.DB)
	politicaRepo := repository.NewPoliticaRepository(d.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	pagoSvc := service.NewPagoService(pagoRepo, d.Locker, engine.NewLedger(), d.Dispatcher)
	ticketSvc := service.NewTicketService(ticketRepo, sorteoRepo, restriccionRepo, cfg.DefaultCutoffMinutes)
	restriccionSvc := service.NewRestriccionService(restriccionRepo, cfg.DefaultCutoffMinutes, cfg.Location())
	comisionSvc := service.NewComisionService(politicaRepo, ticketRepo)
	sorteoSvc := d.Sorteos
	if sorteoSvc == nil {
		sorteoSvc = service.NewSorteoService(sorteoRepo, repository.NewEvaluacionRepository(d.DB))
	}

	// ── Handlers ─────────────────────────────────────────────────────────────
	pagosH := handler.NewPagosHandler(pagoSvc)
	ticketsH := handler.NewTicketsHandler(ticketSvc)
	restriccionesH := handler.NewRestriccionesHandler(restriccionSvc)
	comisionesH := handler.NewComisionesHandler(comisionSvc)
	sorteosH := handler.NewSorteosHandler(sorteoSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.EventsCB))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	limiter := d.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// Protected routes; the limiter runs after auth so it keys by user.
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), limiter.Handler())
	{
		sellers := middleware.RequireRole(middleware.RolVendedor, middleware.RolVentana, middleware.RolBanca, middleware.RolAdmin)
		cashiers := middleware.RequireRole(middleware.RolVentana, middleware.RolBanca, middleware.RolAdmin)
		admins := middleware.RequireRole(middleware.RolBanca, middleware.RolAdmin)

		v1.GET("/ventas/ventana", sellers, restriccionesH.VentanaVenta)

		tickets := v1.Group("/tickets")
		{
			tickets.POST("", sellers, ticketsH.Crear)
			tickets.GET("/:id", sellers, ticketsH.Obtener)
			tickets.GET("/:id/comision", cashiers, comisionesH.ResolverTicket)

			tickets.POST("/:id/pagos", cashiers, pagosH.Registrar)
			tickets.GET("/:id/pagos", cashiers, pagosH.Historial)
			tickets.GET("/:id/pagos/totales", sellers, pagosH.Totales)
			tickets.POST("/:id/pagos/revertir", admins, pagosH.Revertir)
		}

		sorteos := v1.Group("/sorteos")
		{
			sorteos.GET("/:id", sellers, sorteosH.Obtener)
			sorteos.POST("", admins, sorteosH.Crear)
			sorteos.PATCH("/:id/programacion", admins, sorteosH.Reprogramar)
			sorteos.POST("/:id/abrir", admins, sorteosH.Transicion(model.SorteoOpen))
			sorteos.POST("/:id/cerrar", admins, sorteosH.Transicion(model.SorteoClosed))
			sorteos.POST("/:id/evaluar", admins, sorteosH.Evaluar)
		}

		restr := v1.Group("/restricciones", admins)
		{
			restr.GET("", restriccionesH.Listar)
			restr.POST("", restriccionesH.Crear)
			restr.PUT("/:id", restriccionesH.Reemplazar)
			restr.GET("/cutoff", restriccionesH.Cutoff)
		}

		com := v1.Group("/comisiones/:actorType/:actorId", admins)
		{
			com.GET("", comisionesH.Obtener)
			com.PUT("", comisionesH.Guardar)
			com.DELETE("", comisionesH.Reset)
			com.GET("/resolver", comisionesH.Resolver)
		}
	}

	return r
}
