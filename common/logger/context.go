package logger

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

const MAX_MESSAGES = 1000

type LogCategory int

const (
	RC_LOG_PROGRESS LogCategory = iota + 1
	RC_LOG_WARNING
	RC_LOG_ERROR
)

func (c LogCategory) String() string {
	switch c {
	case RC_LOG_PROGRESS:
		return "progress"
	case RC_LOG_WARNING:
		return "warning"
	case RC_LOG_ERROR:
		return "error"
	}
	return "unknown"
}

type Message struct {
	Category LogCategory
	Text     string
}

// BuildContext collects diagnostics for tile builds. Messages are kept in a
// bounded ring and forwarded to zap. It is safe for concurrent use.
type BuildContext struct {
	mu           sync.Mutex
	log          *zap.Logger
	enabled      bool
	m_messages   [MAX_MESSAGES]Message
	m_head       int
	m_count      int
	m_dropped    int
	timerEnabled bool
	timers       map[string]time.Duration
	starts       map[string]time.Time
}

func NewBuildContext(l *Logger) *BuildContext {
	ctx := &BuildContext{enabled: true, timerEnabled: true,
		timers: map[string]time.Duration{}, starts: map[string]time.Time{}}
	if l != nil {
		ctx.log = l.Logger
	} else {
		ctx.log = zap.NewNop()
	}
	return ctx
}

func (ctx *BuildContext) EnableLog(state bool) {
	ctx.mu.Lock()
	ctx.enabled = state
	ctx.mu.Unlock()
}

func (ctx *BuildContext) EnableTimer(state bool) {
	ctx.mu.Lock()
	ctx.timerEnabled = state
	ctx.mu.Unlock()
}

// Log records a message. It never fails: a full ring overwrites the oldest entry.
func (ctx *BuildContext) Log(category LogCategory, format string, args ...any) {
	if ctx == nil {
		return
	}
	text := fmt.Sprintf(format, args...)
	ctx.mu.Lock()
	if !ctx.enabled {
		ctx.mu.Unlock()
		return
	}
	idx := (ctx.m_head + ctx.m_count) % MAX_MESSAGES
	if ctx.m_count == MAX_MESSAGES {
		ctx.m_head = (ctx.m_head + 1) % MAX_MESSAGES
		ctx.m_dropped++
	} else {
		ctx.m_count++
	}
	ctx.m_messages[idx] = Message{Category: category, Text: text}
	ctx.mu.Unlock()

	switch category {
	case RC_LOG_ERROR:
		ctx.log.Error(text)
	case RC_LOG_WARNING:
		ctx.log.Warn(text)
	default:
		ctx.log.Debug(text)
	}
}

func (ctx *BuildContext) Progress(format string, args ...any) {
	ctx.Log(RC_LOG_PROGRESS, format, args...)
}

func (ctx *BuildContext) Warning(format string, args ...any) {
	ctx.Log(RC_LOG_WARNING, format, args...)
}

func (ctx *BuildContext) Error(format string, args ...any) {
	ctx.Log(RC_LOG_ERROR, format, args...)
}

// / Returns number of log messages.
func (ctx *BuildContext) GetLogCount() int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.m_count
}

// / Returns log message text.
func (ctx *BuildContext) GetLogText(i int) string {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if i < 0 || i >= ctx.m_count {
		return ""
	}
	return ctx.m_messages[(ctx.m_head+i)%MAX_MESSAGES].Text
}

// Messages returns a copy of the buffered messages, oldest first.
func (ctx *BuildContext) Messages() []Message {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	res := make([]Message, ctx.m_count)
	for i := range res {
		res[i] = ctx.m_messages[(ctx.m_head+i)%MAX_MESSAGES]
	}
	return res
}

func (ctx *BuildContext) Dropped() int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.m_dropped
}

func (ctx *BuildContext) ResetLog() {
	ctx.mu.Lock()
	ctx.m_head, ctx.m_count, ctx.m_dropped = 0, 0, 0
	ctx.mu.Unlock()
}

// / Dumps the log to w. Write errors are ignored.
func (ctx *BuildContext) DumpLog(w io.Writer, header string) {
	if header != "" {
		_, _ = fmt.Fprintln(w, header)
	}
	for _, m := range ctx.Messages() {
		_, _ = fmt.Fprintf(w, "%s: %s\n", m.Category, m.Text)
	}
}

func (ctx *BuildContext) StartTimer(label string) {
	ctx.mu.Lock()
	if ctx.timerEnabled {
		ctx.starts[label] = time.Now()
	}
	ctx.mu.Unlock()
}

func (ctx *BuildContext) StopTimer(label string) {
	ctx.mu.Lock()
	if start, ok := ctx.starts[label]; ok {
		ctx.timers[label] += time.Since(start)
		delete(ctx.starts, label)
	}
	ctx.mu.Unlock()
}

// GetAccumulatedTime returns the total time recorded for label.
func (ctx *BuildContext) GetAccumulatedTime(label string) time.Duration {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.timers[label]
}

func (ctx *BuildContext) ResetTimers() {
	ctx.mu.Lock()
	ctx.timers = map[string]time.Duration{}
	ctx.starts = map[string]time.Time{}
	ctx.mu.Unlock()
}
