// Command simapi is the HTTP front-end for the simulator. Router wiring
// follows the gin.Default / route-group / health-check shape of
// battery-backtest's cmd/api/main.go; CORS uses rs/cors wrapping the gin
// engine's http.Handler directly since no CORS middleware carried over.
package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"intermittent-sim/internal/metrics"
	"intermittent-sim/internal/simconfig"
	"intermittent-sim/internal/simlog"
	"intermittent-sim/internal/sweep"
)

func main() {
	port := os.Getenv("SIMAPI_PORT")
	if port == "" {
		port = "8080"
	}
	if os.Getenv("SIMAPI_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	sweepMetrics := metrics.NewSweep()
	sweepMetrics.MustRegister(reg)

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.POST("/simulate", handleSimulate)
		api.POST("/sweep", handleSweep(sweepMetrics))
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	addr := fmt.Sprintf(":%s", port)
	log.Printf("simapi listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("simapi: %v", err)
	}
}

type simulateRequest struct {
	Config       simconfig.Config `json:"config"`
	UntilSeconds float64          `json:"until_seconds"`
}

type simulateResponse struct {
	Stats struct {
		Ticks int64 `json:"ticks"`
		Steps int   `json:"steps"`
	} `json:"stats"`
}

func handleSimulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Config.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sim, err := simconfig.BuildSimulation(&req.Config)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	rec := simlog.NewRecorder()
	sim.Logger = rec

	until := req.UntilSeconds
	if until <= 0 {
		until = req.Config.UntilSeconds
	}
	untilTicks := int64(until / req.Config.DTBaseSeconds)

	if err := sim.Run(untilTicks); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp := simulateResponse{}
	resp.Stats.Ticks = sim.Time()
	resp.Stats.Steps = len(rec.Cap)
	c.JSON(http.StatusOK, resp)
}

type sweepRequest struct {
	BaseConfig   simconfig.Config    `json:"base_config"`
	Params       []sweep.ParamSpec   `json:"params"`
	Metrics      map[string][]string `json:"metrics"`
	Settings     sweep.Settings      `json:"settings"`
	UntilSeconds float64             `json:"until_seconds"`
}

func handleSweep(sweepMetrics *metrics.Sweep) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sweepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := req.BaseConfig.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		results, err := sweep.Run(sweep.Request{
			Base:         &req.BaseConfig,
			Params:       req.Params,
			Metrics:      req.Metrics,
			Settings:     req.Settings,
			UntilSeconds: req.UntilSeconds,
		}, sweepMetrics)
		var sweepErr *sweep.SweepError
		if err != nil && !errors.As(err, &sweepErr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		resp := gin.H{"results": results}
		if sweepErr != nil {
			resp["sweep_error"] = sweepErr.Error()
		}
		c.JSON(http.StatusOK, resp)
	}
}
