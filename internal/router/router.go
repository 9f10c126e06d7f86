package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/todolist/api/handler"
)

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	Profile *apiHandler.ProfileHandler
	Task    *apiHandler.TaskHandler
	Health  *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	api := r.Group("/api/v1")

	// Auth routes
	api.POST("/auth/register", handlers.Auth.Register)
	api.POST("/auth/login", handlers.Auth.Login)
	api.POST("/auth/refresh", authMiddleware(handlers.Auth.Refresh))
	api.POST("/auth/logout", authMiddleware(handlers.Auth.Logout))

	// Protected routes
	api.GET("/profile", authMiddleware(handlers.Profile.GetProfile))
	api.PUT("/profile", authMiddleware(handlers.Profile.UpdateProfile))

	api.GET("/owners/{id}/tasks", authMiddleware(handlers.Task.List))
	api.POST("/owners/{id}/tasks", authMiddleware(handlers.Task.Create))
	api.GET("/owners/{id}/tasks/stats", authMiddleware(handlers.Task.Stats))
	api.POST("/owners/{id}/tasks/complete-all", authMiddleware(handlers.Task.CompleteAll))
	api.POST("/owners/{id}/tasks/pending-all", authMiddleware(handlers.Task.PendingAll))
	api.POST("/owners/{id}/tasks/delete-completed", authMiddleware(handlers.Task.DeleteCompleted))

	api.GET("/tasks/{id}", authMiddleware(handlers.Task.Get))
	api.PUT("/tasks/{id}", authMiddleware(handlers.Task.UpdateTitle))
	api.DELETE("/tasks/{id}", authMiddleware(handlers.Task.Delete))
	api.PUT("/tasks/{id}/toggle", authMiddleware(handlers.Task.Toggle))
	api.PUT("/tasks/{id}/complete", authMiddleware(handlers.Task.Complete))
	api.PUT("/tasks/{id}/pending", authMiddleware(handlers.Task.Pending))
	api.GET("/tasks/{id}/events", authMiddleware(handlers.Task.Events))

	return r
}
