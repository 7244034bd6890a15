package logging

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdobak/go-xerrors"
)

// SecurityEvent names a rejected or suspicious action in the security log.
type SecurityEvent string

const (
	SecurityEventMissingAuth     SecurityEvent = "missing_auth"
	SecurityEventInvalidAuthFmt  SecurityEvent = "invalid_auth_format"
	SecurityEventInvalidJWT      SecurityEvent = "invalid_jwt"
	SecurityEventNonAdminAccess  SecurityEvent = "non_admin_access"
	SecurityEventRateLimited     SecurityEvent = "rate_limited"
	SecurityEventBadCredentials  SecurityEvent = "bad_credentials"
	SecurityEventBadAdminSecret  SecurityEvent = "bad_admin_secret"
	SecurityEventNonAdminSelect  SecurityEvent = "non_admin_select"
	SecurityEventAnonymousDenied SecurityEvent = "anonymous_denied"
)

// RequestAttrs is the request identity carried through the context. User and
// Role stay empty for anonymous viewers.
type RequestAttrs struct {
	Method string
	Path   string
	IP     string
	User   string
	Role   string
}

type contextKey struct{}

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

// Initialize installs a JSON slog handler on stdout. LOGGING_LEVEL selects
// debug, info, warn or error; anything else means info.
func Initialize() {
	InitializeWriter(os.Stdout)
}

// InitializeWriter is Initialize with an explicit destination.
func InitializeWriter(w io.Writer) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       decodeLogLevel(os.Getenv("LOGGING_LEVEL")),
		ReplaceAttr: replaceAttr,
	})
	slog.SetDefault(slog.New(handler))
}

func decodeLogLevel(s string) slog.Level {
	var level slog.Level
	if s == "" || level.UnmarshalText([]byte(s)) != nil {
		return slog.LevelInfo
	}
	return level
}

// replaceAttr renders error values as {msg, trace}.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	if err, ok := a.Value.Any().(error); ok {
		a.Value = fmtErr(err)
	}
	return a
}

func fmtErr(err error) slog.Value {
	attrs := []slog.Attr{slog.String("msg", err.Error())}

	trace := xerrors.StackTrace(err)
	if len(trace) > 0 {
		frames := trace.Frames()
		out := make([]stackFrame, len(frames))
		for i, f := range frames {
			out[i] = stackFrame{
				Func:   filepath.Base(f.Function),
				Source: filepath.Join(filepath.Base(filepath.Dir(f.File)), filepath.Base(f.File)),
				Line:   f.Line,
			}
		}
		attrs = append(attrs, slog.Any("trace", out))
	}
	return slog.GroupValue(attrs...)
}

// WrapError prefixes err with msg and records the caller's stack.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return xerrors.Newf("%s: %v", msg, xerrors.WithStackTrace(err, 1))
}

// WithRequestAttrs stores attrs in ctx.
func WithRequestAttrs(ctx context.Context, attrs *RequestAttrs) context.Context {
	return context.WithValue(ctx, contextKey{}, attrs)
}

func requestAttrs(ctx context.Context) *RequestAttrs {
	attrs, _ := ctx.Value(contextKey{}).(*RequestAttrs)
	return attrs
}

// UpdateRequestAttrs returns a context whose attrs carry the authenticated
// user. The attrs already in ctx are not modified.
func UpdateRequestAttrs(ctx context.Context, user, role string) context.Context {
	next := RequestAttrs{}
	if attrs := requestAttrs(ctx); attrs != nil {
		next = *attrs
	}
	next.User, next.Role = user, role
	return WithRequestAttrs(ctx, &next)
}

// RequestFields returns the request attrs in ctx as slog arguments, or nil.
func RequestFields(ctx context.Context) []any {
	attrs := requestAttrs(ctx)
	if attrs == nil {
		return nil
	}

	fields := []any{
		slog.String("method", attrs.Method),
		slog.String("path", attrs.Path),
		slog.String("ip", attrs.IP),
	}
	if attrs.User != "" {
		fields = append(fields, slog.String("user", attrs.User))
	}
	if attrs.Role != "" {
		fields = append(fields, slog.String("role", attrs.Role))
	}
	return fields
}

// ConnLogger returns the default logger annotated with the request attrs in
// ctx and the identity of one realtime connection.
func ConnLogger(ctx context.Context, transport, connID string) *slog.Logger {
	return slog.Default().
		With(RequestFields(ctx)...).
		With(slog.String("transport", transport), slog.String("conn_id", connID))
}

// ExtractClientIP returns the client address from proxy headers, falling
// back to the connection's remote address.
func ExtractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// LogSecurityEvent writes a WARN entry tagged with event.
func LogSecurityEvent(ctx context.Context, event SecurityEvent, msg string) {
	fields := append(RequestFields(ctx), slog.String("security_event", string(event)))
	slog.WarnContext(ctx, msg, fields...)
}

// LogErrorWithStatus writes an ERROR entry for a failed request.
func LogErrorWithStatus(ctx context.Context, status int, msg string, err error) {
	fields := append(RequestFields(ctx), slog.Int("status", status))
	if err != nil {
		fields = append(fields, slog.Any("error", err))
	}
	slog.ErrorContext(ctx, msg, fields...)
}
