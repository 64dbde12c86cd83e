package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aurora-shield/aurora-shield/database"
	"github.com/aurora-shield/aurora-shield/response"
	"github.com/aurora-shield/aurora-shield/services"
	"github.com/aurora-shield/aurora-shield/session"
	"github.com/aurora-shield/aurora-shield/validators"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	SessionCookie = "session_token"

	ctxUserID    = "userID"
	ctxSessionID = "sessionID"
)

type CookieSettings struct {
	Secure bool
}

type AuthController struct {
	users         *services.UserService
	guardian      *services.LoginGuardian
	sessions      *session.Manager
	cookie        CookieSettings
	loginRedirect string
	logger        *zap.Logger
}

func NewAuthController(users *services.UserService, guardian *services.LoginGuardian, sessions *session.Manager, cookie CookieSettings, loginRedirect string, logger *zap.Logger) *AuthController {
	return &AuthController{
		users:         users,
		guardian:      guardian,
		sessions:      sessions,
		cookie:        cookie,
		loginRedirect: loginRedirect,
		logger:        logger,
	}
}

// Register handles user registration
func (ac *AuthController) Register(c *gin.Context) {
	req, ok := validators.ValidateRegisterRequest(c)
	if !ok {
		return
	}

	_, err := ac.users.Register(c.Request.Context(), services.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	}, c.ClientIP())
	if errors.Is(err, database.ErrDuplicateEmail) {
		response.FailWithMessage(c, response.CodeConflict, "Email already registered")
		return
	}
	if err != nil {
		ac.logger.Error("registration failed", zap.Error(err))
		response.FailWithMessage(c, response.CodeInternal, "Registration failed")
		return
	}

	response.OK(c, gin.H{
		"message":  "Registration successful!",
		"redirect": "/login",
	})
}

// Login handles user authentication
func (ac *AuthController) Login(c *gin.Context) {
	req, ok := validators.ValidateLoginRequest(c)
	if !ok {
		return
	}

	result, err := ac.guardian.Authenticate(c.Request.Context(), services.LoginAttempt{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	switch {
	case errors.Is(err, services.ErrAccountLocked):
		response.Fail(c, response.CodeAccountLocked)
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Fail(c, response.CodeInvalidCredentials)
		return
	case err != nil:
		ac.logger.Error("login failed", zap.Error(err))
		response.Fail(c, response.CodeInternal)
		return
	}

	ac.setSessionCookie(c, result.Token, int(ac.sessions.TTL().Seconds()))

	response.OK(c, gin.H{
		"redirect": ac.loginRedirect,
		"user": gin.H{
			"id":   result.UserID,
			"name": result.Name,
		},
	})
}

// Logout revokes the current session, if any, and clears the cookie.
func (ac *AuthController) Logout(c *gin.Context) {
	if token := sessionToken(c); token != "" {
		err := ac.sessions.Revoke(c.Request.Context(), token)
		if err != nil && !errors.Is(err, session.ErrInvalidToken) {
			ac.logger.Error("logout failed", zap.Error(err))
			response.Fail(c, response.CodeInternal)
			return
		}
		if err == nil {
			ac.logger.Named("security").Info("logout", zap.String("ip", c.ClientIP()))
		}
	}

	ac.setSessionCookie(c, "", -1)
	response.OK(c, gin.H{"redirect": "/"})
}

// AuthMiddleware requires a valid session and puts its identity in the
// request context.
func (ac *AuthController) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			response.Fail(c, response.CodeUnauthorized)
			return
		}

		sess, err := ac.sessions.Validate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrInvalidToken) && !errors.Is(err, session.ErrSessionNotFound) {
				ac.logger.Error("session lookup failed", zap.Error(err))
				response.Fail(c, response.CodeInternal)
				return
			}
			response.Fail(c, response.CodeUnauthorized)
			return
		}

		c.Set(ctxUserID, sess.UserID)
		c.Set(ctxSessionID, sess.ID)

		c.Next()
	}
}

func (ac *AuthController) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, value, maxAge, "/", "", ac.cookie.Secure, true)
}

// sessionToken reads the cookie, falling back to a bearer header for API
// clients.
func sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func currentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
