package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-issue-service/internal/api/http/handlers"
	"github.com/spec-kit/civic-issue-service/internal/auth"
	"github.com/spec-kit/civic-issue-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Issues         *handlers.IssuesHandler
	StaffIssues    *handlers.StaffIssuesHandler
	Admin          *handlers.AdminHandler
	Payments       *handlers.PaymentsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Issue reads are public; everything
// that mutates requires a bearer token, and the admin/staff groups are
// additionally role gated.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/staff/login", cfg.Users.StaffLogin)

	app.Get("/issues", cfg.Issues.List)
	app.Get("/issues/:id", cfg.Issues.Get)

	authed := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	authed.Post("/issues", cfg.Issues.Submit)
	authed.Patch("/issues/:id", cfg.Issues.Edit)
	authed.Delete("/issues/:id", cfg.Issues.Delete)
	authed.Patch("/issues/:id/upvote", cfg.Issues.Upvote)

	authed.Get("/users/profile/:email", cfg.Users.GetProfile)
	authed.Patch("/users/profile/:email", cfg.Users.UpdateProfile)

	payments := authed.Group("/payments")
	payments.Post("/subscribe", cfg.Payments.Subscribe)
	payments.Post("/boost", cfg.Payments.Boost)
	payments.Get("/my", cfg.Payments.ListMine)

	staff := authed.Group("/staff", auth.RequireRole(domain.RoleStaff))
	staff.Get("/issues", cfg.StaffIssues.ListAssigned)
	staff.Patch("/issues/:id/status", cfg.StaffIssues.AdvanceStatus)

	admin := authed.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Patch("/issues/:id/assign", cfg.Admin.AssignStaff)
	admin.Patch("/issues/:id/reject", cfg.Admin.RejectIssue)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Patch("/users/:email/block", cfg.Admin.SetBlocked)
	admin.Get("/staff", cfg.Admin.ListStaff)
	admin.Post("/staff", cfg.Admin.CreateStaff)
	admin.Patch("/staff/:email", cfg.Admin.UpdateStaff)
	admin.Delete("/staff/:email", cfg.Admin.DeleteStaff)
	admin.Get("/payments", cfg.Admin.ListPayments)
	admin.Get("/stats", cfg.Admin.Stats)
}
