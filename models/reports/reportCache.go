package reports

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/subcon_backend/config"
)

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

// CacheKey identifies a validation run by the content of both workbooks plus
// the filters. Identical inputs always produce identical output, so a digest
// key is safe.
func CacheKey(variant string, issueFile, receivedFile []byte, filter RowFilter) string {
	h := sha256.New()
	h.Write([]byte(variant))
	h.Write([]byte{0})
	h.Write(issueFile)
	h.Write([]byte{0})
	h.Write(receivedFile)
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(filter.RouteCard)))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(filter.Supplier)))
	return "validation:" + hex.EncodeToString(h.Sum(nil))
}

// CacheGet fills dest from the report cache when enabled and present.
func CacheGet[T any](key string, dest *T) (bool, error) {
	if !reportCacheEnabled() {
		return false, nil
	}
	return config.GetRedisObject(key, dest)
}

// CacheSet stores a computed report; a nil redis client is a no-op.
func CacheSet(key string, obj any) error {
	if !reportCacheEnabled() {
		return nil
	}
	return config.SetRedisObject(key, obj, reportCacheTTL())
}
