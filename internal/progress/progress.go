package progress

import (
	"context"
	"math"
	"sync"

	"github.com/zeromicro/go-zero/core/logx"
)

// Reporter receives a completion value in [0, 100] and the label of the current stage.
// Reporting never affects computed results.
type Reporter interface {
	Update(percent float64, label string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(percent float64, label string)

func (f ReporterFunc) Update(percent float64, label string) {
	f(percent, label)
}

type nopReporter struct{}

func (nopReporter) Update(float64, string) {}

// Nop discards every update.
var Nop Reporter = nopReporter{}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Reporter) Reporter {
	if r == nil {
		return Nop
	}
	return r
}

type scaled struct {
	parent   Reporter
	from, to float64
}

func (s scaled) Update(percent float64, label string) {
	percent = math.Max(0, math.Min(100, percent))
	s.parent.Update(s.from+(s.to-s.from)*percent/100, label)
}

// Scale maps the 0-100 range of a sub-stage onto [from, to] of parent.
func Scale(parent Reporter, from, to float64) Reporter {
	if parent == nil || parent == Nop {
		return Nop
	}
	return scaled{parent: parent, from: from, to: to}
}

// LogReporter writes an info line each time the stage label changes or the
// completion crosses a new whole step.
type LogReporter struct {
	logx.Logger

	mu    sync.Mutex
	step  int
	last  int
	label string
}

// NewLogReporter 创建基于日志的进度输出, step 为两次输出之间的最小百分比间隔
func NewLogReporter(ctx context.Context, step int) *LogReporter {
	if step <= 0 {
		step = 10
	}
	return &LogReporter{
		Logger: logx.WithContext(ctx),
		step:   step,
		last:   -1,
	}
}

func (r *LogReporter) Update(percent float64, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if label == "" {
		label = r.label
	}
	current := int(percent) / r.step * r.step
	if label == r.label && current == r.last {
		return
	}
	r.last = current
	r.label = label
	r.Infof("progress %3.0f%% | task: %s", percent, label)
}
