package http

import (
	"tareas_api/internal/http/handlers"
	"tareas_api/internal/http/middleware"
	"tareas_api/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the router needs from main.
type Deps struct {
	Handler        *handlers.Handler
	Health         *handlers.HealthHandler
	Hub            *ws.Hub
	Tokens         middleware.TokenResolver
	AllowedOrigins []string
}

// Middleware installs the common chain: recovery, request id, access log,
// metrics and CORS.
func Middleware(r *gin.Engine, allowedOrigins []string) {
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.Metrics(),
		middleware.CORS(allowedOrigins),
	)
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := d.Handler
	auth := middleware.TokenAuth(d.Tokens)

	// Health checks
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Accounts
	r.POST("/registrer", h.Register)
	r.POST("/login", h.Login)
	r.GET("/profile", auth, handlers.WithUser(h.Profile))
	r.POST("/logout", auth, handlers.WithUser(h.Logout))

	// Tasks
	tareas := r.Group("/tareas", auth)
	{
		tareas.GET("/", handlers.WithUser(h.ListTasks))
		tareas.GET("/:id/", handlers.WithUser(h.GetTask))
		tareas.POST("/crear/", handlers.WithUser(h.CreateTask))
		tareas.PUT("/editar/:id/", handlers.WithUser(h.UpdateTask))
		tareas.PATCH("/editar/:id/", handlers.WithUser(h.UpdateTask))
		tareas.DELETE("/eliminar/:id/", handlers.WithUser(h.DeleteTask))
	}

	// Task events
	if d.Hub != nil {
		r.GET("/ws", ws.HandleWS(d.Hub, d.Tokens, d.AllowedOrigins))
	}
}
