// Package api assembles the HTTP router.
package api

import (
	"context"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/activities"
	"github.com/eventconnect/backend/internal/attendance"
	"github.com/eventconnect/backend/internal/auth"
	"github.com/eventconnect/backend/internal/exports"
	"github.com/eventconnect/backend/internal/middleware"
	"github.com/eventconnect/backend/internal/notifications"
	"github.com/eventconnect/backend/internal/users"
	"github.com/eventconnect/backend/internal/workshops"
	"github.com/eventconnect/backend/pkg/response"
)

// Handlers are the endpoint groups mounted by the router.
type Handlers struct {
	Auth          *auth.Handler
	Workshops     *workshops.Handler
	Attendance    *attendance.Handler
	Notifications *notifications.Handler
	Users         *users.Handler
	Activities    *activities.Handler
	Exports       *exports.Handler
}

// Options tunes router middleware.
type Options struct {
	CORSOrigins string
	AuthRPS     float64
	AuthBurst   int
	ScanLimit   int
	ScanWindow  time.Duration
}

// Security holds the collaborators of the authentication middleware.
type Security struct {
	JWT         *auth.JWTService
	Revocations middleware.RevocationChecker
	Counter     middleware.WindowCounter
	Policy      *access.Policy
}

// NewRouter builds the gin engine. ctx bounds background middleware goroutines.
func NewRouter(ctx context.Context, opts Options, sec Security, h Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sec.Policy == nil {
		sec.Policy = access.DefaultPolicy()
	}

	router := gin.New()
	router.Use(requestid.New())
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(opts.CORSOrigins))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	authn := middleware.JWT(sec.JWT, sec.Revocations, logger)

	authGroup := router.Group("/auth")
	{
		limited := authGroup.Group("", middleware.RateLimit(ctx, opts.AuthRPS, opts.AuthBurst))
		limited.POST("/register", h.Auth.Register)
		limited.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", authn, h.Auth.Logout)
	}

	api := router.Group("")
	api.Use(authn, middleware.Gate(sec.Policy, logger))
	{
		// Workshops and registrations
		api.GET("/workshops", h.Workshops.List)
		api.POST("/workshops", h.Workshops.Create)
		api.GET("/workshops/:id", h.Workshops.Get)
		api.PUT("/workshops/:id", h.Workshops.Update)
		api.DELETE("/workshops/:id", h.Workshops.Delete)
		api.POST("/workshops/:id/register", h.Workshops.Register)
		api.POST("/workshops/:id/unregister", h.Workshops.Unregister)
		api.GET("/organizer/workshops", h.Workshops.ListOrganized)
		api.GET("/participant/workshops", h.Workshops.ListRegistered)

		// Attendance
		scanThrottle := middleware.Throttle(sec.Counter, "scan", opts.ScanLimit, opts.ScanWindow, logger)
		api.POST("/attendance/scan", scanThrottle, h.Attendance.Scan)
		api.POST("/attendance", h.Attendance.Manual)
		api.GET("/attendance/me", h.Attendance.ListMine)
		api.GET("/attendance/me/:workshopId", h.Attendance.CheckMine)
		api.GET("/attendance/workshop/:id", h.Attendance.ListByWorkshop)

		// Notifications
		api.GET("/notifications", h.Notifications.List)
		api.POST("/notifications", h.Notifications.Create)
		api.PATCH("/notifications/:id/read", h.Notifications.MarkRead)

		// Users
		api.GET("/users/me", h.Users.Me)
		api.PUT("/users/me", h.Users.UpdateMe)
		api.GET("/users", h.Users.List)
		api.PATCH("/users/:id", h.Users.Update)
		api.DELETE("/users/:id", h.Users.Delete)
		api.GET("/admin/stats", h.Users.Stats)
		api.GET("/leaderboard", h.Users.Leaderboard)

		// Activities
		api.GET("/activities", h.Activities.List)
		api.POST("/activities", h.Activities.Create)

		// Exports
		api.POST("/exports/workshops/:id/attendance", h.Exports.Request)
		api.GET("/exports/:id", h.Exports.Get)
	}

	return router
}
