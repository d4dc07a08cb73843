package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/dealerdesk/backend/api/handler"
)

type Handlers struct {
	Auth       *apiHandler.AuthHandler
	Lead       *apiHandler.LeadHandler
	Task       *apiHandler.TaskHandler
	Credit     *apiHandler.CreditHandler
	Alerts     *apiHandler.AlertsHandler
	Dealership *apiHandler.DealershipHandler
	Timeline   *apiHandler.TimelineHandler
	Health     *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)
	r.POST("/api/v1/auth/logout", authMiddleware(handlers.Auth.Logout))
	r.GET("/api/v1/auth/me", authMiddleware(handlers.Auth.Me))

	// Leads
	r.GET("/api/v1/leads", authMiddleware(handlers.Lead.List))
	r.POST("/api/v1/leads", authMiddleware(handlers.Lead.Create))
	r.GET("/api/v1/leads/{id}", authMiddleware(handlers.Lead.Get))
	r.PUT("/api/v1/leads/{id}", authMiddleware(handlers.Lead.Update))
	r.PATCH("/api/v1/leads/{id}/stage", authMiddleware(handlers.Lead.UpdateStage))
	r.PATCH("/api/v1/leads/{id}/assign", authMiddleware(handlers.Lead.Assign))
	r.POST("/api/v1/leads/{id}/contacted", authMiddleware(handlers.Lead.MarkContacted))
	r.PATCH("/api/v1/leads/{id}/follow-up", authMiddleware(handlers.Lead.SetFollowUp))

	// Tasks
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.List))
	r.GET("/api/v1/tasks/agenda", authMiddleware(handlers.Task.Agenda))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.Create))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.Update))
	r.POST("/api/v1/tasks/{id}/complete", authMiddleware(handlers.Task.Complete))
	r.POST("/api/v1/tasks/{id}/reopen", authMiddleware(handlers.Task.Reopen))
	r.POST("/api/v1/tasks/{id}/cancel", authMiddleware(handlers.Task.Cancel))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.Delete))

	// Credits
	r.GET("/api/v1/credits", authMiddleware(handlers.Credit.List))
	r.POST("/api/v1/credits", authMiddleware(handlers.Credit.Create))
	r.GET("/api/v1/credits/{id}", authMiddleware(handlers.Credit.Get))
	r.PUT("/api/v1/credits/{id}", authMiddleware(handlers.Credit.Update))
	r.POST("/api/v1/credits/{id}/close", authMiddleware(handlers.Credit.Close))
	r.POST("/api/v1/credits/{id}/reopen", authMiddleware(handlers.Credit.Reopen))
	r.GET("/api/v1/credits/{id}/reminder", authMiddleware(handlers.Credit.Reminder))

	// Alerts
	r.GET("/api/v1/alerts", authMiddleware(handlers.Alerts.Counts))
	r.POST("/api/v1/alerts/refresh", authMiddleware(handlers.Alerts.Refresh))

	// Dealership settings
	r.GET("/api/v1/dealership", authMiddleware(handlers.Dealership.Get))
	r.PUT("/api/v1/dealership", authMiddleware(handlers.Dealership.Update))

	// Timelines
	r.GET("/api/v1/timeline/{entityType}/{entityID}", authMiddleware(handlers.Timeline.ListByEntity))

	return r
}
