package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"palmcosmic/internal/content"
	"palmcosmic/internal/dispatch"
	"palmcosmic/internal/generator"
	"palmcosmic/internal/store"
	"palmcosmic/internal/timekey"
	"palmcosmic/internal/zodiac"
	"palmcosmic/pkg/cache"
	"palmcosmic/pkg/logging"
	"palmcosmic/pkg/middleware"
)

// AlmanacMetrics contains custom Prometheus metrics for the content
// pipeline.
type AlmanacMetrics struct {
	Generations  *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
	EmailsSent   *prometheus.CounterVec
	DispatchRuns *prometheus.CounterVec

	DBQueries     *prometheus.CounterVec
	DBDuration    *prometheus.HistogramVec
	DBConnections *prometheus.GaugeVec
}

// ContentEngine is the generation surface the HTTP layer needs.
type ContentEngine interface {
	GetOrGenerateWithFallback(ctx context.Context, sign zodiac.Sign, g timekey.Granularity) content.Record
	GenerateBatch(ctx context.Context, granularities []timekey.Granularity, only *zodiac.Sign) (generator.BatchResult, error)
	GenerateInsights(ctx context.Context, user store.UserBirth) error
	InsightsBatch(ctx context.Context, users []store.UserBirth) map[string]bool
}

// InsightReader is the read-only store surface for serving insights.
type InsightReader interface {
	Get(ctx context.Context, cacheID string) (content.Record, bool, error)
	UserBirthByID(ctx context.Context, userID string) (store.UserBirth, bool, error)
	InsightCandidates(ctx context.Context) ([]store.UserBirth, error)
}

// Dispatcher runs one daily email pass.
type Dispatcher interface {
	Run(ctx context.Context) (dispatch.Result, error)
}

var (
	logger     logging.Logger
	engine     ContentEngine
	reader     InsightReader
	dispatcher Dispatcher
	memCache   *cache.Cache
	cronSecret string
	metrics    *AlmanacMetrics

	// timeNow is swapped in tests.
	timeNow = time.Now
)

// Init initializes the handlers with their dependencies.
func Init(log logging.Logger, eng ContentEngine, rd InsightReader, disp Dispatcher, mc *cache.Cache, secret string, m *AlmanacMetrics) {
	logger = log
	engine = eng
	reader = rd
	dispatcher = disp
	memCache = mc
	cronSecret = secret
	metrics = m
}

type generateHoroscopesRequest struct {
	Secret  string   `json:"secret"`
	Periods []string `json:"periods"`
	Sign    string   `json:"sign"`
}

// GenerateHoroscopes runs the scheduled archetype batch. Periods
// default to all four when omitted; a single sign narrows the run for
// backfills.
func GenerateHoroscopes(c middleware.Context) {
	var req generateHoroscopesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Secret != cronSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var granularities []timekey.Granularity
	for _, p := range req.Periods {
		g, err := timekey.Parse(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid period %q", p)})
			return
		}
		granularities = append(granularities, g)
	}

	var only *zodiac.Sign
	if req.Sign != "" {
		sign, err := zodiac.Parse(req.Sign)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid sign %q", req.Sign)})
			return
		}
		only = &sign
	}

	results, err := engine.GenerateBatch(c.Request.Context(), granularities, only)
	if err != nil {
		logger.WithError(err).Error("Horoscope batch failed")
		if metrics != nil {
			metrics.Generations.WithLabelValues("horoscope", "error").Inc()
		}
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "Upstream fact provider unavailable"})
		return
	}
	if metrics != nil {
		metrics.Generations.WithLabelValues("horoscope", "ok").Inc()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Horoscopes generated",
		"results": results,
	})
}

type generateInsightsRequest struct {
	Secret string `json:"secret"`
	UserID string `json:"user_id"`
}

// GenerateInsights runs the personalized daily batch, or one user when
// user_id is set.
func GenerateInsights(c middleware.Context) {
	var req generateInsightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Secret != cronSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var users []store.UserBirth
	if req.UserID != "" {
		user, found, err := reader.UserBirthByID(c.Request.Context(), req.UserID)
		if err != nil {
			logger.WithError(err).Error("Failed to load user birth data")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found or missing birth data"})
			return
		}
		users = []store.UserBirth{user}
	} else {
		var err error
		users, err = reader.InsightCandidates(c.Request.Context())
		if err != nil {
			logger.WithError(err).Error("Failed to list insight candidates")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
			return
		}
	}

	results := engine.InsightsBatch(c.Request.Context(), users)
	if metrics != nil {
		metrics.Generations.WithLabelValues("insights", "ok").Inc()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   len(users),
		"results": results,
	})
}

// DailyEmail triggers one dispatch pass. Scheduler platforms send GET
// with a bearer token rather than a JSON body.
func DailyEmail(c middleware.Context) {
	auth := c.GetHeader("Authorization")
	if auth != "Bearer "+cronSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := dispatcher.Run(c.Request.Context())
	if err != nil {
		logger.WithError(err).Error("Daily email dispatch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Dispatch failed"})
		return
	}
	if metrics != nil {
		metrics.DispatchRuns.WithLabelValues(result.Mode).Inc()
		metrics.EmailsSent.WithLabelValues("sent").Add(float64(result.Sent))
		metrics.EmailsSent.WithLabelValues("error").Add(float64(result.Errors))
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// GetHoroscope serves the archetype horoscope for one sign. Responses
// pass through a short-lived in-process cache so a burst of reads for
// the same sign does not hammer the store.
func GetHoroscope(c middleware.Context) {
	sign, err := zodiac.Parse(c.Query("sign"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Valid sign is required"})
		return
	}

	period := c.DefaultQuery("period", "daily")
	g, err := timekey.Parse(period)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": fmt.Sprintf("Invalid period %q", period)})
		return
	}
	// The daily endpoint serves tomorrow's partition on request.
	if g == timekey.Daily && strings.EqualFold(c.Query("day"), "TOMORROW") {
		g = timekey.Tomorrow
	}

	cacheKey := fmt.Sprintf("%s_%s", g, sign)
	_, cached := memCache.Peek(cacheKey)
	val, _, err := memCache.Get(c.Request.Context(), cacheKey, func(ctx context.Context, _ string) (interface{}, bool, error) {
		return engine.GetOrGenerateWithFallback(ctx, sign, g), true, nil
	})
	if err != nil {
		logger.WithError(err).Error("Horoscope lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Content unavailable"})
		return
	}
	rec := val.(content.Record)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"sign":    sign.String(),
		"period":  period,
		"source":  string(rec.Source),
		"cached":  cached,
		"data":    json.RawMessage(rec.Payload),
	})
}

// GetInsights serves today's personalized record. The read path never
// generates: a miss degrades to deterministic fallback content so the
// response stays fast and cheap.
func GetInsights(c middleware.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user_id is required"})
		return
	}

	tk := timekey.Derive(timekey.Daily, timeNow(), 0)
	cacheID := content.UserCacheID(timekey.Daily, userID, tk)

	rec, found, err := reader.Get(c.Request.Context(), cacheID)
	if err != nil {
		logger.WithError(err).WithField("cache_id", cacheID).Warn("Insights read failed, serving fallback")
	}
	if !found || err != nil {
		payload := content.FallbackInsights(userID)
		raw, _ := json.Marshal(payload)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"user_id": userID,
			"source":  string(content.SourceFallback),
			"cached":  false,
			"data":    json.RawMessage(raw),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user_id": userID,
		"source":  string(rec.Source),
		"cached":  true,
		"data":    json.RawMessage(rec.Payload),
	})
}
