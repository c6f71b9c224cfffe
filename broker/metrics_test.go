package broker

import "testing"

func counterValue(t *testing.T, m *metrics, name string) float64 {
	t.Helper()
	families, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		var total float64
		for _, metric := range fam.Metric {
			switch {
			case metric.Counter != nil:
				total += metric.Counter.GetValue()
			case metric.Gauge != nil:
				total += metric.Gauge.GetValue()
			}
		}
		return total
	}
	t.Fatalf("metric family %q not found", name)
	return 0
}

func TestMetricsConnAcceptedAndClosed(t *testing.T) {
	m := newMetrics()
	m.connAccepted(TransportTLS)
	if got := counterValue(t, m, "cpdlcd_connections_total"); got != 1 {
		t.Fatalf("expected connections_total=1, got %v", got)
	}
	if got := counterValue(t, m, "cpdlcd_connections_active"); got != 1 {
		t.Fatalf("expected connections_active=1, got %v", got)
	}
	m.connClosed(TransportTLS)
	if got := counterValue(t, m, "cpdlcd_connections_active"); got != 0 {
		t.Fatalf("expected connections_active=0 after close, got %v", got)
	}
}

func TestMetricsMessageCounters(t *testing.T) {
	m := newMetrics()
	m.messageRouted()
	m.messageDropped("quota")
	m.messageDeferred()
	if got := counterValue(t, m, "cpdlcd_messages_routed_total"); got != 1 {
		t.Fatalf("expected messages_routed_total=1, got %v", got)
	}
	if got := counterValue(t, m, "cpdlcd_messages_dropped_total"); got != 1 {
		t.Fatalf("expected messages_dropped_total=1, got %v", got)
	}
	if got := counterValue(t, m, "cpdlcd_messages_deferred_total"); got != 1 {
		t.Fatalf("expected messages_deferred_total=1, got %v", got)
	}
}
