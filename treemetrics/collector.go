package treemetrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreamware/stabletree/tree"
)

// ErrInvalidConfig is returned when the collector configuration is invalid.
var ErrInvalidConfig = errors.New("invalid treemetrics configuration")

// Source is anything that reports tree statistics, typically a *tree.Tree.
type Source interface {
	Stats() tree.Stats
}

// Config names the exported metrics.
type Config struct {
	// Namespace prefixes every metric name. Required.
	Namespace string

	// Subsystem is placed between the namespace and the metric name.
	// Optional.
	Subsystem string

	// ConstLabels are attached to every metric, e.g. to tell several trees
	// apart.
	ConstLabels prometheus.Labels
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Namespace == "" {
		return ErrInvalidConfig
	}
	return nil
}

// Collector is a prometheus.Collector over a Source.
// Safe for concurrent use when the Source is.
type Collector struct {
	src Source

	operations *prometheus.Desc
	failures   *prometheus.Desc
	nodes      *prometheus.Desc
	roots      *prometheus.Desc
	slots      *prometheus.Desc
}

// NewCollector returns a Collector reading from src.
func NewCollector(src Source, cfg Config) (*Collector, error) {
	if src == nil {
		return nil, ErrInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	name := func(n string) string {
		return prometheus.BuildFQName(cfg.Namespace, cfg.Subsystem, n)
	}
	return &Collector{
		src: src,
		operations: prometheus.NewDesc(name("operations_total"),
			"Tree operations by kind.", []string{"op"}, cfg.ConstLabels),
		failures: prometheus.NewDesc(name("failures_total"),
			"Tree operations that failed, by reason.", []string{"reason"}, cfg.ConstLabels),
		nodes: prometheus.NewDesc(name("nodes"),
			"Number of live nodes.", nil, cfg.ConstLabels),
		roots: prometheus.NewDesc(name("roots"),
			"Number of root nodes.", nil, cfg.ConstLabels),
		slots: prometheus.NewDesc(name("slots"),
			"Number of node slots by state.", []string{"state"}, cfg.ConstLabels),
	}, nil
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.operations
	ch <- c.failures
	ch <- c.nodes
	ch <- c.roots
	ch <- c.slots
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	counter := func(d *prometheus.Desc, v uint64, label string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), label)
	}
	counter(c.operations, s.Ops.Gets, "get")
	counter(c.operations, s.Ops.GetMuts, "get_mut")
	counter(c.operations, s.Ops.Inserts, "insert")
	counter(c.operations, s.Ops.Removes, "remove")
	counter(c.operations, s.Ops.Moves, "move")
	counter(c.failures, s.Ops.Missing, "missing")
	counter(c.failures, s.Ops.Conflicts, "conflict")

	ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue, float64(s.Nodes))
	ch <- prometheus.MustNewConstMetric(c.roots, prometheus.GaugeValue, float64(s.Roots))

	live := s.Slots - s.FreeSlots - s.Retired
	ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue, float64(live), "live")
	ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue, float64(s.FreeSlots), "free")
	ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue, float64(s.Retired), "retired")
}
