package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveOp_CountsSuccessAndError(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveOp("read", true)
	c.ObserveOp("read", false)
	c.ObserveOp("read", false)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var total, errs float64
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "remotefs_operations_total":
			total = sumCounter(mf)
		case "remotefs_operation_errors_total":
			errs = sumCounter(mf)
		}
	}
	if total != 3 {
		t.Fatalf("expected 3 total ops, got %v", total)
	}
	if errs != 2 {
		t.Fatalf("expected 2 error ops, got %v", errs)
	}
}

func sumCounter(mf *dto.MetricFamily) float64 {
	var sum float64
	for _, m := range mf.GetMetric() {
		sum += m.GetCounter().GetValue()
	}
	return sum
}
