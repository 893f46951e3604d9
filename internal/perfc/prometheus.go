package perfc

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPrometheus exposes every enabled Basic- and Rate-kind counter
// currently registered in t as a prometheus.GaugeFunc on reg. This runs alongside the
// JSON data-tree walk (Emit/EmitAll) rather than replacing it: the data
// tree remains the spec-mandated surface, Prometheus is the ambient
// scrape-based view a production deployment also wants.
//
// Latency/Distribution/SimpleLatency counters are not mirrored here — their
// histogram shape doesn't map onto a single gauge, and the JSON tree is
// already the richer representation for them.
func RegisterPrometheus(t *DataTree, reg *prometheus.Registry) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for path, set := range t.sets {
		for name, counter := range set.counters {
			if !set.enabled[name] {
				continue
			}
			switch counter.Kind() {
			case KindBasic, KindRate:
				c := counter
				metricName := prometheusName(path, name)
				g := prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Name: metricName,
						Help: "perfc counter " + path + "/" + name,
					},
					func() float64 {
						fields := c.Emit()
						if v, ok := fields["value"].(uint64); ok {
							return float64(v)
						}
						if v, ok := fields["current"].(uint64); ok {
							return float64(v)
						}
						return 0
					},
				)
				if err := reg.Register(g); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func prometheusName(path, counter string) string {
	clean := strings.NewReplacer("/", "_", "-", "_").Replace(strings.TrimPrefix(path, DataTreeRoot))
	clean = strings.Trim(clean, "_")
	return "kvengine_perfc_" + clean + "_" + counter
}
