package routes

import (
	"github.com/aurora-shield/aurora-shield/controllers"
	"github.com/aurora-shield/aurora-shield/middleware"
	"github.com/aurora-shield/aurora-shield/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth    *controllers.AuthController
	User    *controllers.UserController
	Alert   *controllers.AlertController
	Contact *controllers.ContactController
	Health  *controllers.HealthController
}

// NewRouter builds a bare engine with logging and panic recovery. Recovery
// runs inside the request logger so recovered panics still get a log line.
// trustedProxies nil means the socket address is the client IP.
func NewRouter(logger *zap.Logger, trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, err
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	return r, nil
}

func SetupRoutes(router *gin.Engine, h Handlers, limiter ratelimit.Limiter, logger *zap.Logger) {
	limit := func(rule ratelimit.Rule) gin.HandlerFunc {
		return middleware.RateLimit(limiter, rule, logger)
	}
	auth := h.Auth.AuthMiddleware()

	router.GET("/health", h.Health.Check)

	router.POST("/register", limit(ratelimit.RegisterRule), h.Auth.Register)
	router.POST("/login", limit(ratelimit.LoginRule), h.Auth.Login)
	router.GET("/logout", h.Auth.Logout)
	router.POST("/logout", h.Auth.Logout)

	router.GET("/history_json", limit(ratelimit.DefaultRule), h.Alert.History)

	api := router.Group("/api")
	{
		api.POST("/panic", limit(ratelimit.PanicRule), h.Alert.Panic)
		api.GET("/me", limit(ratelimit.DefaultRule), auth, h.User.GetCurrentUser)

		contacts := api.Group("/contacts", limit(ratelimit.DefaultRule), auth)
		{
			contacts.GET("", h.Contact.List)
			contacts.POST("", h.Contact.Create)
			contacts.PUT("", h.Contact.Update)
			contacts.DELETE("", h.Contact.Delete)
		}
	}
}
