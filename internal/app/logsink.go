package app

import (
	"os"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2/data/binding"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logDebounceInterval = 150 * time.Millisecond

// logSink keeps the last lines written to it and mirrors them into a
// binding, coalescing bursts of writes.
type logSink struct {
	mu       sync.Mutex
	lines    []string
	limit    int
	binding  binding.String
	updateCh chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newLogSink(b binding.String, limit int) *logSink {
	return &logSink{binding: b, limit: limit}
}

func (l *logSink) Write(p []byte) (int, error) {
	text := strings.ReplaceAll(string(p), "\r\n", "\n")
	l.mu.Lock()
	for _, part := range strings.Split(text, "\n") {
		if part == "" {
			continue
		}
		l.lines = append(l.lines, part)
	}
	if len(l.lines) > l.limit {
		l.lines = l.lines[len(l.lines)-l.limit:]
	}
	ch := l.updateCh
	l.mu.Unlock()

	if ch == nil {
		l.flush()
		return len(p), nil
	}
	select {
	case ch <- struct{}{}:
	default:
	}
	return len(p), nil
}

func (l *logSink) start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.updateCh != nil {
		return
	}
	l.updateCh = make(chan struct{}, 1)
	l.stopCh = make(chan struct{})
	go l.loop(l.updateCh, l.stopCh)
}

func (l *logSink) stop() {
	l.mu.Lock()
	stopCh := l.stopCh
	l.mu.Unlock()
	if stopCh == nil {
		return
	}
	l.stopOnce.Do(func() { close(stopCh) })
}

func (l *logSink) loop(updateCh, stopCh chan struct{}) {
	timer := time.NewTimer(logDebounceInterval)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-stopCh:
			timer.Stop()
			l.flush()
			return
		case <-updateCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(logDebounceInterval)
		case <-timer.C:
			l.flush()
		}
	}
}

func (l *logSink) text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

func (l *logSink) flush() {
	_ = l.binding.Set(l.text())
}

// newLogger writes JSON to stdout and short console lines to the sink.
func newLogger(sink *logSink, level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	paneCfg := zap.NewDevelopmentEncoderConfig()
	paneCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	paneCfg.CallerKey = ""
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.Lock(os.Stdout), lvl),
		zapcore.NewCore(zapcore.NewConsoleEncoder(paneCfg), zapcore.AddSync(sink), lvl),
	)
	return zap.New(core)
}
