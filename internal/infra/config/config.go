package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/formlock/formlock-backend/pkg/env"
)

type RenderConfig struct {
	CacheDir    string
	CacheTTL    time.Duration
	Concurrency int64
	JobTimeout  time.Duration
	RendererURL string
	Secret      string
}

func NewRenderConfig() *RenderConfig {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	cacheDir := env.GetEnv("PDF_CACHE_DIR", filepath.Join(wd, ".cache", "pdfs"))

	ttlDays, err := strconv.Atoi(env.GetEnv("PDF_CACHE_TTL_DAYS", "30"))
	if err != nil {
		ttlDays = 30
	}
	concurrency, err := strconv.Atoi(env.GetEnv("PDF_QUEUE_CONCURRENCY", "2"))
	if err != nil || concurrency < 1 {
		concurrency = 2
	}
	timeoutSeconds, err := strconv.Atoi(env.GetEnv("PDF_JOB_TIMEOUT", "60"))
	if err != nil {
		timeoutSeconds = 60
	}

	return &RenderConfig{
		CacheDir:    cacheDir,
		CacheTTL:    time.Duration(ttlDays) * 24 * time.Hour,
		Concurrency: int64(concurrency),
		JobTimeout:  time.Duration(timeoutSeconds) * time.Second,
		RendererURL: env.GetEnv("RENDERER_URL", "http://localhost:3001"),
		Secret:      os.Getenv("RENDERER_SECRET"),
	}
}

type WebhookConfig struct {
	RequestTimeout time.Duration
	RetryBackoff   time.Duration
	BodyCap        int
	UserAgent      string
}

func NewWebhookConfig() *WebhookConfig {
	timeoutSeconds, err := strconv.Atoi(env.GetEnv("WEBHOOK_TIMEOUT", "30"))
	if err != nil {
		timeoutSeconds = 30
	}
	backoffMillis, err := strconv.Atoi(env.GetEnv("WEBHOOK_RETRY_BACKOFF_MS", "1000"))
	if err != nil {
		backoffMillis = 1000
	}
	return &WebhookConfig{
		RequestTimeout: time.Duration(timeoutSeconds) * time.Second,
		RetryBackoff:   time.Duration(backoffMillis) * time.Millisecond,
		BodyCap:        64 * 1024,
		UserAgent:      "Formlock-Webhook/1.0",
	}
}

type LinkConfig struct {
	BaseURL   string
	ExpiresIn time.Duration
}

func NewLinkConfig() *LinkConfig {
	ttlDays, err := strconv.Atoi(env.GetEnv("LINK_TTL_DAYS", "7"))
	if err != nil {
		ttlDays = 7
	}
	return &LinkConfig{
		BaseURL:   env.GetEnv("BASE_URL", "http://localhost:8080"),
		ExpiresIn: time.Duration(ttlDays) * 24 * time.Hour,
	}
}
