package slo

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func TestSLOConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"CycleSuccessSLO", CycleSuccessSLO, 0.95},
		{"CycleDurationP95SLO", CycleDurationP95SLO, 420.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, tt.value, tt.expected)
			}
		})
	}
}

func TestUpdateCycleSuccessRatio(t *testing.T) {
	SLOCycleSuccessRatio.Set(0)

	testValue := 0.98
	UpdateCycleSuccessRatio(testValue)

	metric := &io_prometheus_client.Metric{}
	if err := SLOCycleSuccessRatio.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	got := metric.GetGauge().GetValue()
	if got != testValue {
		t.Errorf("SLOCycleSuccessRatio = %v, want %v", got, testValue)
	}
}

func TestUpdateCycleDurationP95(t *testing.T) {
	SLOCycleDurationP95Seconds.Set(0)

	testValue := 180.5
	UpdateCycleDurationP95(testValue)

	metric := &io_prometheus_client.Metric{}
	if err := SLOCycleDurationP95Seconds.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	got := metric.GetGauge().GetValue()
	if got != testValue {
		t.Errorf("SLOCycleDurationP95Seconds = %v, want %v", got, testValue)
	}
}

func TestMetricsAreRegistered(t *testing.T) {
	metrics := []prometheus.Collector{
		SLOCycleSuccessRatio,
		SLOCycleDurationP95Seconds,
	}

	for _, metric := range metrics {
		desc := make(chan *prometheus.Desc, 1)
		metric.Describe(desc)
		select {
		case d := <-desc:
			if d == nil {
				t.Error("metric descriptor is nil")
			}
		default:
			t.Error("no descriptor received")
		}
	}
}

func TestSLOMetricsCanBeObserved(t *testing.T) {
	UpdateCycleSuccessRatio(0.97)
	UpdateCycleDurationP95(300)

	metrics := []prometheus.Collector{
		SLOCycleSuccessRatio,
		SLOCycleDurationP95Seconds,
	}

	for _, metric := range metrics {
		ch := make(chan prometheus.Metric, 1)
		metric.Collect(ch)
		select {
		case m := <-ch:
			if m == nil {
				t.Error("collected metric is nil")
			}
		default:
			t.Error("no metric collected")
		}
	}
}

func TestSLOTargetsAreReasonable(t *testing.T) {
	if CycleSuccessSLO <= 0 || CycleSuccessSLO > 1.0 {
		t.Errorf("CycleSuccessSLO = %v, should be between 0 and 1", CycleSuccessSLO)
	}

	if CycleDurationP95SLO <= 0 {
		t.Errorf("CycleDurationP95SLO = %v, should be positive", CycleDurationP95SLO)
	}
}
