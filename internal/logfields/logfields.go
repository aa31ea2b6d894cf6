package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath         = "path"
	KeyPage         = "page"
	KeyResourceType = "resource_type"
	KeyTemplate     = "template"
	KeyStage        = "stage"
	KeyEventID      = "event_id"
	KeyOp           = "op"
	KeyRoot         = "root"
	KeyDurationMS   = "duration_ms"
	KeyMethod       = "method"
	KeyStatus       = "status"
	KeyRemoteAddr   = "remote_addr"
	KeyUserAgent    = "user_agent"
	KeyCount        = "count"
	KeyError        = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Page(id string) slog.Attr         { return slog.String(KeyPage, id) }
func ResourceType(t string) slog.Attr  { return slog.String(KeyResourceType, t) }
func Template(name string) slog.Attr   { return slog.String(KeyTemplate, name) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func EventID(id string) slog.Attr      { return slog.String(KeyEventID, id) }
func Op(op string) slog.Attr           { return slog.String(KeyOp, op) }
func Root(r string) slog.Attr          { return slog.String(KeyRoot, r) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr    { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Since(start time.Time) slog.Attr  { return DurationMS(float64(time.Since(start).Microseconds()) / 1000) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
