package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/ava/api/handler"
)

type Handlers struct {
	Auth      *apiHandler.AuthHandler
	Profile   *apiHandler.ProfileHandler
	Presignup *apiHandler.PresignupHandler
	Admin     *apiHandler.AdminHandler
	Health    *apiHandler.HealthHandler
}

func New(
	handlers Handlers,
	authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler,
	adminGuard func(fasthttp.RequestHandler) fasthttp.RequestHandler,
) *router.Router {
	r := router.New()
	admin := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return authMiddleware(adminGuard(h))
	}

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/signup", handlers.Auth.SignUp)
	r.POST("/api/v1/auth/signin", handlers.Auth.SignIn)
	r.POST("/api/v1/auth/reset", handlers.Auth.ResetPassword)
	r.POST("/api/v1/auth/reset/confirm", handlers.Auth.ConfirmReset)
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)
	r.POST("/api/v1/auth/signout", authMiddleware(handlers.Auth.SignOut))
	r.GET("/api/v1/session/next", authMiddleware(handlers.Auth.Next))

	// Society form filled in before the admin account exists
	r.GET("/api/v1/presignup/society", handlers.Presignup.LoadDraft)
	r.POST("/api/v1/presignup/society", handlers.Presignup.SaveDraft)
	r.POST("/api/v1/presignup/complete", handlers.Presignup.Complete)

	// Protected routes
	r.GET("/api/v1/profile", authMiddleware(handlers.Profile.GetProfile))
	r.PUT("/api/v1/profile", authMiddleware(handlers.Profile.UpdateProfile))

	r.GET("/api/v1/admin/setup", admin(handlers.Admin.SetupStatus))
	r.POST("/api/v1/admin/setup", admin(handlers.Admin.Setup))
	r.GET("/api/v1/admin/society", admin(handlers.Admin.GetSociety))
	r.PUT("/api/v1/admin/society", admin(handlers.Admin.UpdateSociety))
	r.GET("/api/v1/admin/members", admin(handlers.Admin.ListMembers))

	return r
}
