package observe

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"
)

const (
	_sentryMaxErrorDepth        = 9
	_sentryFlushTimeout         = 5 * time.Second
	_sentryServerRequestTimeout = 5 * time.Second
)

// SentryHook is an io.Writer that receives the JSON log stream and forwards
// error-level entries to Sentry. Attach it as an extra logger writer.
type SentryHook struct {
	appEnv  string
	appName string
	capture func(*sentry.Event)
}

// NewSentryHook initialises the Sentry client. It returns nil when dsn is empty.
func NewSentryHook(appEnv, appName, dsn string, isDebug bool) (*SentryHook, error) {
	if dsn == "" {
		return nil, nil
	}

	transport := sentry.NewHTTPTransport()
	transport.Timeout = _sentryServerRequestTimeout

	if err := sentry.Init(sentry.ClientOptions{
		AttachStacktrace: true,
		Debug:            isDebug,
		Dsn:              dsn,
		Environment:      appEnv,
		MaxErrorDepth:    _sentryMaxErrorDepth,
		ServerName:       appName,
		Transport:        transport,
	}); err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	return newHook(appEnv, appName, func(e *sentry.Event) { sentry.CaptureEvent(e) }), nil
}

func newHook(appEnv, appName string, capture func(*sentry.Event)) *SentryHook {
	return &SentryHook{appEnv: appEnv, appName: appName, capture: capture}
}

// Flush waits for buffered events to be sent.
func (h *SentryHook) Flush() {
	sentry.Flush(_sentryFlushTimeout)
}

type logLine struct {
	Level      string `json:"level"`
	AppName    string `json:"app_name"`
	CallerFile string `json:"caller_file"`
	CallerLine int    `json:"caller_line"`
	CallerFunc string `json:"caller_func"`
	Stack      string `json:"stack"`
	Message    string `json:"msg"`
	Error      string `json:"error"`
	Timestamp  string `json:"timestamp"`
}

func (*SentryHook) mapLevel(zl zapcore.Level) sentry.Level {
	switch zl {
	case zapcore.InfoLevel:
		return sentry.LevelInfo
	case zapcore.WarnLevel:
		return sentry.LevelWarning
	case zapcore.ErrorLevel:
		return sentry.LevelError
	case zapcore.FatalLevel, zapcore.PanicLevel, zapcore.DPanicLevel:
		return sentry.LevelFatal
	}
	return sentry.LevelDebug
}

// Write is a zap sink, so its own failures go to the standard log package.
// Reporting them through the zap logger would feed them back into this hook.
func (h *SentryHook) Write(p []byte) (int, error) {
	var t logLine
	if err := json.Unmarshal(p, &t); err != nil {
		log.Println(errors.New("[SentryHook] json.Unmarshal data").Error())
		return len(p), nil
	}

	level, err := zapcore.ParseLevel(t.Level)
	if err != nil {
		log.Printf("[SentryHook] parse zap level: %v", err)
		return len(p), nil
	}
	if level < zapcore.ErrorLevel || t.Message == "" {
		return len(p), nil
	}

	event := sentry.NewEvent()
	event.Environment = h.appEnv
	event.Level = h.mapLevel(level)
	event.Message = t.Message
	event.Timestamp = time.Now()
	event.Extra["AppName"] = h.appName
	event.Extra["Error"] = t.Error
	event.Extra["CallerFile"] = t.CallerFile
	event.Extra["CallerLine"] = t.CallerLine
	event.Extra["CallerFunc"] = t.CallerFunc
	event.Extra["Stack"] = t.Stack
	event.Extra["TimeStamp"] = t.Timestamp
	event.Exception = append(event.Exception, sentry.Exception{
		Type:       t.Message,
		Value:      t.Error,
		Stacktrace: sentry.NewStacktrace(),
	})

	h.capture(event)
	return len(p), nil
}
