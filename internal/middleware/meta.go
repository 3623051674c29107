package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

type responseMeta struct {
	started time.Time
	fields  map[string]interface{}
}

// WithResponseMeta opens a per-request meta bag that handlers fill with
// SetMeta and flush into the envelope with FinalizeMeta.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{started: time.Now(), fields: map[string]interface{}{}})
		c.Next()
	}
}

// SetMeta stores a single response meta entry.
func SetMeta(c *gin.Context, key string, value interface{}) {
	metaFor(c).fields[key] = value
}

// SetCacheHit records whether the payload came from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, "cache_hit", hit)
}

// FinalizeMeta stamps processing_time_ms and returns the collected entries.
// Without WithResponseMeta upstream the clock starts at the first SetMeta
// call, or now.
func FinalizeMeta(c *gin.Context) map[string]interface{} {
	meta := metaFor(c)
	meta.fields["processing_time_ms"] = time.Since(meta.started).Milliseconds()
	return meta.fields
}

func metaFor(c *gin.Context) *responseMeta {
	if value, ok := c.Get(responseMetaKey); ok {
		if meta, ok := value.(*responseMeta); ok {
			return meta
		}
	}
	meta := &responseMeta{started: time.Now(), fields: map[string]interface{}{}}
	c.Set(responseMetaKey, meta)
	return meta
}
