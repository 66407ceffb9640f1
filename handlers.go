package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"inventory/models"
	"inventory/pkg/policy"
	"inventory/pkg/query"
	"inventory/pkg/reconcile"
	"inventory/pkg/store"
)

const (
	userKey   = "user"
	userIDKey = "user_id"
	roleKey   = "role"
)

func newRouter(c appConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), metricsMiddleware())
	setupRoutes(r, c)
	return r
}

func setupRoutes(r *gin.Engine, c appConfig) {
	r.GET("/metrics", metricsHandler())
	r.POST("/request-code", requestCodeLimiter(c.AuthCodeRate), requestCodeHandler(c.Debug))
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)

	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/logout", logoutHandler)

	authGroup.GET("/hardware", listHardwareHandler)
	authGroup.POST("/hardware", createHardwareHandler)
	authGroup.GET("/hardware/:id", getHardwareHandler)
	authGroup.PUT("/hardware/:id", updateHardwareHandler)
	authGroup.DELETE("/hardware/:id", deleteHardwareHandler)
	authGroup.GET("/hardware-instances", listHardwareInstancesHandler)

	authGroup.GET("/software", listSoftwareHandler)
	authGroup.POST("/software", createSoftwareHandler)
	authGroup.GET("/software/:id", getSoftwareHandler)
	authGroup.PUT("/software/:id", updateSoftwareHandler)
	authGroup.DELETE("/software/:id", deleteSoftwareHandler)
	authGroup.GET("/software-instances", listSoftwareInstancesHandler)

	authGroup.GET("/statuses", listStatusesHandler)
	authGroup.GET("/user-types", listUserTypesHandler)

	authGroup.GET("/users", listUsersHandler)
	authGroup.POST("/users", createUserHandler)
	authGroup.GET("/users/:id", getUserHandler)
	authGroup.PUT("/users/:id", updateUserHandler)
	authGroup.DELETE("/users/:id", deleteUserHandler)

	reports := authGroup.Group("/reports")
	reports.GET("/software-near-expiry", softwareNearExpiryHandler)
	reports.GET("/hardware-needing-maintenance", hardwareNeedingMaintenanceHandler)
	reports.GET("/hardware-not-assigned", hardwareNotAssignedHandler)
	reports.GET("/software-not-assigned", softwareNotAssignedHandler)
}

// requestCodeLimiter throttles code requests per client IP.
func requestCodeLimiter(formatted string) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		logger.WithError(err).WithField("rate", formatted).Warn("invalid auth code rate, using 5-M")
		rate = limiter.Rate{Period: time.Minute, Limit: 5}
	}
	return mgin.NewMiddleware(limiter.New(memory.NewStore(), rate),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			respondError(c, err)
		}),
	)
}

// jwtAuthMiddleware authenticates the bearer token and loads the user. The
// role is taken from the users table so a changed type applies at once.
func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			abortUnauthorized(c, "missing or invalid Authorization header")
			return
		}
		id, err := parseAccessToken(authHeader[7:])
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}
		user, err := st.Users.Get(c.Request.Context(), id)
		if err != nil {
			abortUnauthorized(c, "user not found")
			return
		}
		c.Set(userKey, user)
		c.Set(userIDKey, user.ID)
		c.Set(roleKey, policy.Role(user.UserTypeID))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, reason string) {
	logFor(c).WithField("reason", reason).Debug("authentication failed")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
}

// actorRole returns the role of the authenticated user; zero when unset,
// which no capability check accepts.
func actorRole(c *gin.Context) policy.Role {
	if v, ok := c.Get(roleKey); ok {
		if r, ok := v.(policy.Role); ok {
			return r
		}
	}
	return 0
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// respondError maps an error onto the response envelope.
func respondError(c *gin.Context, err error) {
	var verr *reconcile.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid data", "errors": verr.Errors()})
	case errors.Is(err, policy.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
	case errors.Is(err, policy.ErrInvalidUserType):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": policy.ErrInvalidUserType.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	case errors.Is(err, query.ErrInvalidSearch), errors.Is(err, store.ErrUnsupportedFilter):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}

func errorOutcome(err error) string {
	var verr *reconcile.ValidationError
	switch {
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, policy.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func requestCodeHandler(debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body"})
			return
		}
		if strings.TrimSpace(req.Email) == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"message": "Invalid data",
				"errors":  gin.H{"email": []string{"This field may not be blank."}},
			})
			return
		}
		code, err := issueLoginCode(c.Request.Context(), req.Email)
		if errors.Is(err, errEmailNotFound) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": errEmailNotFound.Error()})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		resp := gin.H{"message": "Code sent"}
		if debug {
			resp["code"] = code
		}
		c.JSON(http.StatusOK, resp)
	}
}

func loginHandler(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	user, err := verifyLoginCode(c.Request.Context(), req.Email, req.Code)
	if errors.Is(err, errInvalidCode) {
		c.JSON(http.StatusBadRequest, gin.H{"message": errInvalidCode.Error()})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	tokenString, err := issueAccessToken(user, accessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create refresh token"})
		return
	}
	logFor(c).WithField("user", user.ID).Info("user logged in")
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken, "email": user.Email})
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	ctx := c.Request.Context()
	rt, err := findRefreshTokenByRaw(ctx, req.RefreshToken)
	if err != nil || rt.Revoked || now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired refresh token"})
		return
	}
	user, err := st.Users.Get(ctx, rt.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "user not found"})
		return
	}
	tokenString, err := issueAccessToken(user, accessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to generate token"})
		return
	}
	rt.Revoked = true
	if err := st.RefreshTokens.Update(ctx, rt); err != nil {
		respondError(c, err)
		return
	}
	newRT, err := createAndStoreRefreshToken(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

func logoutHandler(c *gin.Context) {
	user := currentUser(c)
	n, err := revokeRefreshTokens(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	logFor(c).WithField("revoked", n).Info("user logged out")
	c.Status(http.StatusNoContent)
}

func meHandler(c *gin.Context) {
	user := currentUser(c)
	role := actorRole(c)
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "email": user.Email, "role": int(role), "role_label": role.Label()})
}
