package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aurora-shield/aurora-shield/config"
	"github.com/aurora-shield/aurora-shield/controllers"
	"github.com/aurora-shield/aurora-shield/database"
	"github.com/aurora-shield/aurora-shield/geo"
	"github.com/aurora-shield/aurora-shield/ratelimit"
	"github.com/aurora-shield/aurora-shield/routes"
	"github.com/aurora-shield/aurora-shield/services"
	"github.com/aurora-shield/aurora-shield/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadEnv,
			config.NewLogger,
			newStore,
			newRedisClient,
			newSessionManager,
			newRateLimiter,
			newLocator,
			newLoginGuardian,
			services.NewUserService,
			newAuthController,
			controllers.NewUserController,
			controllers.NewAlertController,
			controllers.NewContactController,
			controllers.NewHealthController,
			newRouter,
		),
		fx.Invoke(startHTTPServer),
	)

	app.Run()
}

func newStore(lc fx.Lifecycle, env *config.Env, logger *zap.Logger) (database.Store, error) {
	store, err := database.Open(env)
	if err != nil {
		return nil, err
	}
	logger.Info("database ready", zap.String("driver", env.DBDriver))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

// newRedisClient connects only when some component is configured for redis;
// otherwise it returns nil.
func newRedisClient(lc fx.Lifecycle, env *config.Env) (*database.RedisClient, error) {
	useRedis := env.SessionBackend == "redis" || (env.RateLimitEnabled && env.RateLimitBackend == "redis")
	if !useRedis {
		return nil, nil
	}

	redisClient, err := database.GetRedisClient(env.RedisAddr, env.RedisPass, env.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return redisClient.Close()
		},
	})
	return redisClient, nil
}

func newSessionManager(env *config.Env, redisClient *database.RedisClient) *session.Manager {
	var store session.Store = session.NewMemoryStore()
	if env.SessionBackend == "redis" {
		store = session.NewRedisStore(redisClient)
	}
	return session.NewManager(store, env.SessionSecret, env.SessionTTL)
}

func newRateLimiter(env *config.Env, redisClient *database.RedisClient) ratelimit.Limiter {
	switch {
	case !env.RateLimitEnabled:
		return ratelimit.Unlimited{}
	case env.RateLimitBackend == "redis":
		return ratelimit.NewRedisLimiter(redisClient.Client())
	default:
		return ratelimit.NewMemoryLimiter()
	}
}

func newLocator(env *config.Env) geo.Locator {
	if env.GeoIPEnabled {
		return geo.NewIPAPILocator()
	}
	return geo.StaticLocator{}
}

func newLoginGuardian(env *config.Env, store database.Store, sessions *session.Manager, locator geo.Locator, logger *zap.Logger) *services.LoginGuardian {
	policy := services.LockoutPolicy{
		Threshold: env.LockoutThreshold,
		Duration:  env.LockoutDuration,
	}
	return services.NewLoginGuardian(store, sessions, locator, policy, logger)
}

func newAuthController(env *config.Env, users *services.UserService, guardian *services.LoginGuardian, sessions *session.Manager, logger *zap.Logger) *controllers.AuthController {
	cookie := controllers.CookieSettings{Secure: env.CookieSecure}
	return controllers.NewAuthController(users, guardian, sessions, cookie, env.LoginRedirect, logger)
}

type routerParams struct {
	fx.In

	Env     *config.Env
	Logger  *zap.Logger
	Limiter ratelimit.Limiter
	Auth    *controllers.AuthController
	User    *controllers.UserController
	Alert   *controllers.AlertController
	Contact *controllers.ContactController
	Health  *controllers.HealthController
}

func newRouter(p routerParams) (*gin.Engine, error) {
	if !p.Env.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := routes.NewRouter(p.Logger, p.Env.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("configure router: %w", err)
	}
	routes.SetupRoutes(r, routes.Handlers{
		Auth:    p.Auth,
		User:    p.User,
		Alert:   p.Alert,
		Contact: p.Contact,
		Health:  p.Health,
	}, p.Limiter, p.Logger)
	return r, nil
}

func startHTTPServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, env *config.Env, router *gin.Engine, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              env.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			logger.Info("http server listening", zap.String("addr", srv.Addr))

			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}
