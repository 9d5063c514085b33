// Package treemetrics exports tree statistics to Prometheus.
//
// A Collector reads tree.Stats on every scrape and reports them as const
// metrics, so the tree itself carries no Prometheus state and pays nothing
// between scrapes.
//
//	t := tree.New[string]()
//	c, err := treemetrics.NewCollector(t, treemetrics.Config{Namespace: "docs"})
//	if err != nil {
//		return err
//	}
//	prometheus.MustRegister(c)
//
// Exported metrics, all prefixed with the configured namespace and
// subsystem:
//
//	operations_total{op}   counter  borrows granted, inserts, removes, moves
//	failures_total{reason} counter  operations failed as missing or conflict
//	nodes                  gauge    live nodes
//	roots                  gauge    root nodes
//	slots{state}           gauge    node slots by state: live, free, retired
package treemetrics
