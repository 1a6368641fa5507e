package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gateway "github.com/nimasrn/crowdfund/internal/gateways"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	sim       *Simulator
	secretKey string
}

func NewHandler(sim *Simulator, secretKey string) *Handler {
	return &Handler{sim: sim, secretKey: secretKey}
}

func (h *Handler) CreateCharge(c *gin.Context) {
	var req gateway.ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if req.Reference == "" || req.Phone == "" || req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference, phone and a positive amount are required"})
		return
	}
	c.JSON(http.StatusOK, h.sim.Charge(&req))
}

func (h *Handler) GetCharge(c *gin.Context) {
	res, err := h.sim.Get(c.Param("reference"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// SettleCharge settles a charge immediately instead of waiting for the delay.
func (h *Handler) SettleCharge(c *gin.Context) {
	ref := c.Param("reference")
	if err := h.sim.Settle(ref); err != nil {
		if errors.Is(err, errUnknownCharge) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	res, _ := h.sim.Get(ref)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateSubaccount(c *gin.Context) {
	var req gateway.SubaccountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BusinessName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "business_name is required"})
		return
	}
	code := "ACCT_" + strings.ToUpper(uuid.NewString()[:10])
	log.Info().Str("business_name", req.BusinessName).Str("code", code).Msg("subaccount created")
	c.JSON(http.StatusOK, gateway.SubaccountResponse{Code: code})
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var cfg struct {
		SuccessRate *float64 `json:"success_rate"`
	}
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if cfg.SuccessRate != nil && !h.sim.SetSuccessRate(*cfg.SuccessRate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "success_rate must be between 0 and 1"})
		return
	}
	log.Info().Float64("success_rate", h.sim.SuccessRate()).Msg("configuration updated")
	c.JSON(http.StatusOK, gin.H{"success_rate": h.sim.SuccessRate()})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"timestamp":    time.Now(),
		"success_rate": h.sim.SuccessRate(),
	})
}

// requireSecret checks the bearer token the API client sends.
func (h *Handler) requireSecret(c *gin.Context) {
	if h.secretKey == "" {
		c.Next()
		return
	}
	if c.GetHeader("Authorization") != "Bearer "+h.secretKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret key"})
		return
	}
	c.Next()
}

func SetupRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request processed")
	})

	api := router.Group("/", h.requireSecret)
	{
		api.POST("/charges", h.CreateCharge)
		api.GET("/charges/:reference", h.GetCharge)
		api.POST("/subaccounts", h.CreateSubaccount)
	}

	admin := router.Group("/_mock")
	{
		admin.POST("/charges/:reference/settle", h.SettleCharge)
		admin.PUT("/config", h.UpdateConfig)
	}

	router.GET("/health", h.HealthCheck)
	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	gin.SetMode(gin.ReleaseMode)

	port := getEnv("PORT", "9090")
	successRate := getEnvFloat("SUCCESS_RATE", 0.9)
	minDelay := getEnvDuration("MIN_DELAY", 2*time.Second)
	maxDelay := getEnvDuration("MAX_DELAY", 6*time.Second)
	webhookURL := getEnv("WEBHOOK_URL", "http://localhost:8080/api/v1/payments/webhook")
	webhookSecret := os.Getenv("GATEWAY_WEBHOOK_SECRET")
	secretKey := os.Getenv("GATEWAY_SECRET_KEY")

	log.Info().
		Str("port", port).
		Float64("success_rate", successRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Str("webhook_url", webhookURL).
		Msg("starting mock mobile-money gateway")

	if webhookSecret == "" {
		log.Warn().Msg("GATEWAY_WEBHOOK_SECRET is empty, the API will reject every webhook")
	}

	sim := NewSimulator(successRate, minDelay, maxDelay, webhookURL, webhookSecret)
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      SetupRouter(NewHandler(sim, secretKey)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	sim.Wait(ctx)
	log.Info().Msg("server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
