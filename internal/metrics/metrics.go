// Package metrics exposes Prometheus instrumentation for command stacks.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesh-intelligence/docmodel/pkg/command"
)

// Metric names.
const (
	CommandsTotal = "docmodel_commands_total"
	HistoryDepth  = "docmodel_history_depth"
)

// Recorder counts stack operations by op and command type, and tracks the
// undo/redo depth per document.
type Recorder struct {
	commands *prometheus.CounterVec
	depth    *prometheus.GaugeVec
}

// NewRecorder registers the collectors with reg. A nil reg uses a fresh
// registry.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Recorder{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: CommandsTotal,
			Help: "Stack operations applied, by op and command type.",
		}, []string{"op", "type"}),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: HistoryDepth,
			Help: "Undo and redo history lengths per document.",
		}, []string{"document", "history"}),
	}
	for _, c := range []prometheus.Collector{r.commands, r.depth} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observer returns a stack observer for docID. stack may be nil, in which
// case only the counter is updated.
func (r *Recorder) Observer(docID string, stack *command.Stack) command.Observer {
	return command.ObserverFunc(func(op command.Op, cmd command.Command) {
		if cmd == nil {
			return
		}
		r.commands.WithLabelValues(string(op), cmd.TypeName()).Inc()
		if stack != nil {
			undo, redo := stack.Len()
			r.depth.WithLabelValues(docID, "undo").Set(float64(undo))
			r.depth.WithLabelValues(docID, "redo").Set(float64(redo))
		}
	})
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
