package reports

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/broman/realty_backend/config"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Reporter runs the read-only financial reports.
type Reporter struct {
	db     *gorm.DB
	logger *logrus.Logger
	cache  *config.Redis
}

// NewReporter builds a reporter. cache may be nil; caching also needs ENABLE_REPORT_CACHE.
func NewReporter(db *gorm.DB, logger *logrus.Logger, cache *config.Redis) *Reporter {
	return &Reporter{db: db, logger: logger, cache: cache}
}

func reportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

func reportCacheTTL() time.Duration {
	// Env: REPORT_CACHE_TTL_SECONDS (default 120s)
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

func reportSlowMs() int64 {
	// Env: REPORT_SLOW_MS (default 500ms)
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func (r *Reporter) logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() || r.logger == nil {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	r.logger.WithFields(logrus.Fields{
		"field":          "SlowReport",
		"name":           name,
		"ms":             d.Milliseconds(),
		"correlation_id": cid,
		"extra":          extra,
	}).Warn("slow report")
}

func cacheGet[T any](ctx context.Context, r *Reporter, key string, dest *T) bool {
	if !reportCacheEnabled() || r.cache == nil {
		return false
	}
	found, err := r.cache.GetObject(ctx, key, dest)
	if err != nil {
		config.LogError(r.logger, "reports", "cacheGet", "reading report cache", key, err)
		return false
	}
	return found
}

func (r *Reporter) cacheSet(ctx context.Context, key string, obj any) {
	if !reportCacheEnabled() || r.cache == nil {
		return
	}
	if err := r.cache.SetObject(ctx, key, obj, reportCacheTTL()); err != nil {
		config.LogError(r.logger, "reports", "cacheSet", "writing report cache", key, err)
	}
}

// dateRange validates an inclusive [from, to] day range.
func dateRange(from, to *time.Time) (*time.Time, *time.Time, error) {
	var end *time.Time
	if to != nil {
		e := utils.EndOfDay(*to)
		end = &e
	}
	if from != nil && end != nil && from.After(*end) {
		return nil, nil, utils.NewValidationError("from_date", "must not be after to_date")
	}
	return from, end, nil
}

func rangeKey(from, to *time.Time) string {
	f, t := "-", "-"
	if from != nil {
		f = from.Format("2006-01-02")
	}
	if to != nil {
		t = to.Format("2006-01-02")
	}
	return f + ":" + t
}
