package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aligner-portal/internal/handler"
	"github.com/iliyamo/aligner-portal/internal/metrics"
	"github.com/iliyamo/aligner-portal/internal/middleware"
	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/service"
)

// RegisterRoutes registers routes that do not require authentication:
// the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler, m *metrics.Collector) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
}

// RegisterAuth registers the session endpoints under /v1/auth. limiter
// guards the credential routes; pass nil to mount them unguarded.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gate *service.Gate, m *metrics.Collector, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh token alone, or a bearer to end every session.
	g.POST("/logout", a.Logout, middleware.OptionalAuth(gate))

	auth := e.Group("/v1", middleware.Authenticate(gate, m))
	auth.GET("/me", a.Me)
	auth.PUT("/me/password", a.ChangePassword)
}

// API groups the handlers behind the bearer-protected /v1 prefix.
type API struct {
	Cases         *handler.CaseHandler
	Collab        *handler.CollabHandler
	Notifications *handler.NotificationHandler
	Specials      *handler.SpecialCommentHandler
	Categories    *handler.CategoryHandler
	Dashboard     *handler.DashboardHandler
	Admin         *handler.AdminHandler
}

// RegisterAPI registers the authenticated case portal routes. Role
// middleware rejects whole route groups early; per-case ownership and
// capability checks happen in the services. cache wraps the dashboard
// stats read and may be nil.
func RegisterAPI(e *echo.Echo, api API, gate *service.Gate, m *metrics.Collector, cache echo.MiddlewareFunc) {
	v1 := e.Group("/v1", middleware.Authenticate(gate, m))
	admins := middleware.RequireRole(gate, model.RoleAdmin)

	cases := v1.Group("/cases")
	cases.POST("", api.Cases.Create, middleware.RequireRole(gate, model.RoleDoctor, model.RoleAdmin))
	cases.GET("", api.Cases.List)
	cases.GET("/:id", api.Cases.Get)
	cases.PUT("/:id", api.Cases.UpdateIntake)
	cases.DELETE("/:id", api.Cases.Delete)
	cases.PUT("/:id/status", api.Cases.SetStatus)
	cases.PUT("/:id/price", api.Cases.SetPrice, admins)
	cases.PUT("/:id/planner", api.Cases.AssignPlanner, admins)
	cases.PUT("/:id/progress", api.Cases.SetProgress)
	cases.PUT("/:id/stl", api.Cases.AttachSTL)

	cases.POST("/:id/comments", api.Collab.AddComment)
	cases.GET("/:id/comments", api.Collab.ListComments)
	cases.PATCH("/:id/comments/:commentId", api.Collab.EditComment, admins)
	cases.DELETE("/:id/comments/:commentId", api.Collab.DeleteComment, admins)
	cases.POST("/:id/files", api.Collab.AddFile)
	cases.GET("/:id/files", api.Collab.ListFiles)
	cases.DELETE("/:id/files/:fileId", api.Collab.DeleteFile)

	v1.POST("/uploads", api.Cases.PresignUpload)

	inbox := middleware.RequireRole(gate, model.RoleAdmin, model.RoleDoctor)
	v1.GET("/notifications", api.Notifications.List, inbox)
	v1.PATCH("/notifications", api.Notifications.MarkRead, inbox)

	sc := v1.Group("/special-comments", admins)
	sc.POST("", api.Specials.Create)
	sc.GET("", api.Specials.List)
	sc.PATCH("/:id/read", api.Specials.MarkRead)
	sc.PUT("/:id", api.Specials.Update)
	sc.DELETE("/:id", api.Specials.Delete)

	v1.GET("/categories", api.Categories.List)
	v1.POST("/categories", api.Categories.Create, admins)
	v1.DELETE("/categories/:id", api.Categories.Delete, admins)

	// unread counts change on every comment, so only the stats are cached
	if cache != nil {
		v1.GET("/dashboard", api.Dashboard.Get, cache)
	} else {
		v1.GET("/dashboard", api.Dashboard.Get)
	}
	v1.GET("/dashboard/unread", api.Dashboard.Unread)

	adm := v1.Group("/admin", admins)
	adm.GET("/users", api.Admin.ListUsers)
	adm.POST("/admins", api.Admin.CreateAdmin)
	adm.PUT("/admins/:userId/capabilities", api.Admin.SetCapabilities)
	adm.PUT("/admins/:userId/password", api.Admin.ResetPassword)
	adm.POST("/planners", api.Admin.CreatePlanner)
	adm.POST("/distributers", api.Admin.CreateDistributer)
	adm.PUT("/distributers/:distributerId/access", api.Admin.SetDistributerAccess)
	adm.PUT("/users/:userId/suspension", api.Admin.SetSuspended)
	adm.PUT("/doctors/:userId/distributer", api.Admin.AssignDistributer)
}
