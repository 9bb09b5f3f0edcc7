package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Skufu/healthrisk/internal/auth"
	"github.com/Skufu/healthrisk/internal/classifier"
	"github.com/Skufu/healthrisk/internal/logging"
	"github.com/Skufu/healthrisk/internal/metrics"
	"github.com/Skufu/healthrisk/internal/risk"
)

const disclaimer = "This is an aid, not a medical diagnosis. Consult a professional for clinical decisions."

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type app struct {
	db           HealthChecker
	classifier   classifier.Classifier
	gate         *auth.Gate
	sessions     *auth.SessionStore
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	cookieSecure bool
	corsOrigins  []string
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Pointers so a missing field is distinguishable from zero.
type assessRequest struct {
	Age              *int     `json:"age" binding:"required"`
	BMI              *float64 `json:"bmi" binding:"required"`
	BloodPressure    *int     `json:"bloodPressure" binding:"required"`
	SugarLevel       *int     `json:"sugarLevel" binding:"required"`
	PhysicalActivity *int     `json:"physicalActivity" binding:"required"`
	Smoking          *int     `json:"smoking" binding:"required"`
}

func (r assessRequest) vector() risk.FeatureVector {
	return risk.FeatureVector{
		Age:              *r.Age,
		BMI:              *r.BMI,
		BloodPressure:    *r.BloodPressure,
		SugarLevel:       *r.SugarLevel,
		PhysicalActivity: *r.PhysicalActivity,
		Smoking:          *r.Smoking,
	}
}

// assessRequest struct field -> index into risk.Fields
var requestFieldIndex = map[string]int{
	"Age":              0,
	"BMI":              1,
	"BloodPressure":    2,
	"SugarLevel":       3,
	"PhysicalActivity": 4,
	"Smoking":          5,
}

type assessResponse struct {
	Label             risk.Label         `json:"label"`
	LabelText         string             `json:"labelText"`
	Severity          string             `json:"severity"`
	ConfidencePercent float64            `json:"confidencePercent"`
	Recommendations   []string           `json:"recommendations"`
	Patient           risk.FeatureVector `json:"patient"`
	Disclaimer        string             `json:"disclaimer"`
}

func setupRouter(a *app, staticRoot string) *gin.Engine {
	origins := a.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		logging.Requests(a.logger),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.StaticFile("/", filepath.Join(staticRoot, "index.html"))
	router.StaticFile("/app.js", filepath.Join(staticRoot, "app.js"))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if a.db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
	})

	if a.metrics != nil {
		router.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	}

	api := router.Group("/api")
	api.POST("/auth/login", a.login)
	api.POST("/auth/logout", a.logout)

	private := api.Group("", auth.RequireSession(a.sessions))
	private.GET("/auth/session", a.currentSession)
	private.GET("/risk/form", a.form)
	private.POST("/risk/assess", a.assess)

	return router
}

func (a *app) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := a.gate.Authenticate(req.Username, req.Password); err != nil {
		a.countLogin(false)
		a.logger.Warn().Msg("login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	a.countLogin(true)

	// A fresh id on every login; the previous one is discarded.
	if old, err := c.Cookie(auth.CookieName); err == nil {
		a.sessions.Delete(old)
	}
	sess := a.sessions.Create(req.Username)
	a.setSessionCookie(c, sess.ID, int(a.sessions.TTL().Seconds()))

	a.logger.Info().Str("user", sess.Username).Msg("login accepted")
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("Welcome %s!", sess.Username),
		"username": sess.Username,
	})
}

func (a *app) logout(c *gin.Context) {
	if id, err := c.Cookie(auth.CookieName); err == nil {
		a.sessions.Delete(id)
	}
	a.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (a *app) currentSession(c *gin.Context) {
	sess, _ := auth.CurrentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"username":  sess.Username,
		"expiresAt": sess.ExpiresAt,
	})
}

func (a *app) form(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fields":     risk.Fields,
		"defaults":   risk.DefaultVector(),
		"disclaimer": disclaimer,
	})
}

func (a *app) assess(c *gin.Context) {
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			a.countFailure("validation_failed")
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation_failed",
				"details": missingFields(verrs),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	vector := req.vector()
	if err := vector.Validate(); err != nil {
		var details risk.ValidationErrors
		errors.As(err, &details)
		a.countFailure("validation_failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation_failed",
			"details": details,
		})
		return
	}

	out, err := a.classifier.Predict(c.Request.Context(), vector)
	if err != nil {
		a.writeAssessError(c, err)
		return
	}

	result, err := risk.Assess(vector, out)
	if err != nil {
		a.writeAssessError(c, err)
		return
	}

	if a.metrics != nil {
		a.metrics.Assessment(string(result.Label))
	}

	severity := "success"
	if result.Label == risk.HighRisk {
		severity = "alert"
	}

	c.JSON(http.StatusOK, assessResponse{
		Label:             result.Label,
		LabelText:         result.Label.Display(),
		Severity:          severity,
		ConfidencePercent: result.ConfidencePercent,
		Recommendations:   result.Recommendations,
		Patient:           vector,
		Disclaimer:        disclaimer,
	})
}

func (a *app) writeAssessError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, classifier.ErrInference):
		status, code = http.StatusUnprocessableEntity, "inference_failed"
	case errors.Is(err, classifier.ErrModelUnavailable):
		status, code = http.StatusServiceUnavailable, "model_unavailable"
	case errors.Is(err, risk.ErrInvalidInput):
		status, code = http.StatusBadGateway, "invalid_model_output"
	}

	a.countFailure(code)
	a.logger.Error().Err(err).Str("reason", code).Msg("assessment failed")
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}

func missingFields(verrs validator.ValidationErrors) []risk.FieldError {
	out := make([]risk.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		idx, ok := requestFieldIndex[fe.Field()]
		if !ok {
			out = append(out, risk.FieldError{Field: fe.Field(), Message: fe.Error()})
			continue
		}
		f := risk.Fields[idx]
		out = append(out, risk.FieldError{Field: f.Key, Message: f.Label + " is required"})
	}
	return out
}

func (a *app) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, value, maxAge, "/", "", a.cookieSecure, true)
}

func (a *app) countLogin(ok bool) {
	if a.metrics != nil {
		a.metrics.Login(ok)
	}
}

func (a *app) countFailure(reason string) {
	if a.metrics != nil {
		a.metrics.Failure(reason)
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// detectStaticRoot finds the web/ directory holding index.html, searching the
// working directory and up to two parents.
func detectStaticRoot() string {
	startDir, err := os.Getwd()
	if err != nil {
		return "web"
	}

	candidates := []string{
		startDir,
		filepath.Dir(startDir),
		filepath.Dir(filepath.Dir(startDir)),
	}

	for _, dir := range candidates {
		web := filepath.Join(dir, "web")
		if fileExists(filepath.Join(web, "index.html")) {
			return web
		}
	}

	return filepath.Join(startDir, "web")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
