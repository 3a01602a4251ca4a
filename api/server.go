// Package api 对外提供触发抓取的 HTTP 接口
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"news-crawler/collect"
	"news-crawler/engine"
)

const (
	DefaultCategory = "economy"
	DefaultLimit    = 5
	DefaultMaxQuota = 50
)

type Crawler interface {
	Crawl(ctx context.Context, req collect.CrawlRequest) ([]int64, error)
}

type CrawlResponse struct {
	Source   string  `json:"source"`
	Category string  `json:"category"`
	IDs      []int64 `json:"ids"`
	Error    string  `json:"error,omitempty"`
}

type Handler struct {
	crawler  Crawler
	maxQuota int
	logger   *zap.Logger
}

// ClampLimit 把请求数量限制在 [1, maxQuota]，maxQuota 非正时取 DefaultMaxQuota
func ClampLimit(limit, maxQuota int) int {
	if maxQuota < 1 {
		maxQuota = DefaultMaxQuota
	}
	return max(1, min(limit, maxQuota))
}

func NewHandler(c Crawler, maxQuota int, logger *zap.Logger) *Handler {
	if maxQuota < 1 {
		maxQuota = DefaultMaxQuota
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{crawler: c, maxQuota: maxQuota, logger: logger}
}

func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.accessLog())
	router.GET("/healthz", h.Health)
	router.GET("/crawling/:source", h.Crawl)
	return router
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Crawl GET /crawling/:source?category=economy&limit=5，limit 限制在 [1, maxQuota]
func (h *Handler) Crawl(c *gin.Context) {
	source, ok := collect.ParseSource(c.Param("source"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source " + strconv.Quote(c.Param("source"))})
		return
	}
	category := c.DefaultQuery("category", DefaultCategory)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}
	limit = ClampLimit(limit, h.maxQuota)

	ids, err := h.crawler.Crawl(c.Request.Context(), collect.CrawlRequest{
		Source:   source,
		Category: category,
		Quota:    limit,
	})
	if ids == nil {
		ids = []int64{}
	}
	resp := CrawlResponse{Source: string(source), Category: category, IDs: ids}
	if err != nil {
		resp.Error = err.Error()
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, engine.ErrUnknownSource):
			status = http.StatusNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		}
		h.logger.Error("crawl failed",
			zap.String("source", string(source)),
			zap.String("category", category),
			zap.Int("saved", len(ids)),
			zap.Error(err),
		)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
