package logging_test

import (
	"context"
	"testing"
	"time"

	"arena/logging"
	"arena/logging/sinks"
)

func fixedClock() logging.Clock {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return logging.ClockFunc(func() time.Time { return at })
}

func TestRouterDeliversAndDrainsOnClose(t *testing.T) {
	mem := sinks.NewMemory()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"room": "main"}
	router := logging.NewRouter(fixedClock(), cfg, []logging.NamedSink{{Name: "memory", Sink: mem}})

	for i := 0; i < 10; i++ {
		router.Publish(context.Background(), logging.Event{Type: "test.event", Tick: uint64(i), Severity: logging.SeverityInfo})
	}
	router.Publish(context.Background(), logging.Event{Type: "test.debug", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityError})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := mem.Events()
	if len(events) != 10 {
		t.Fatalf("expected 10 events, got %d", len(events))
	}
	for i, event := range events {
		if event.Tick != uint64(i) {
			t.Fatalf("events out of order: %d at %d", event.Tick, i)
		}
		if event.Extra["room"] != "main" {
			t.Fatalf("expected default field, got %v", event.Extra)
		}
		if event.Time.IsZero() {
			t.Fatalf("expected router to stamp time")
		}
	}
	if stats := router.Stats(); stats.EventsTotal != 10 {
		t.Fatalf("expected 10 forwarded events, got %d", stats.EventsTotal)
	}
	if router.Sink("memory") != mem {
		t.Fatalf("expected sink lookup by name")
	}

	router.Publish(context.Background(), logging.Event{Type: "late"})
	if len(mem.Events()) != 10 {
		t.Fatalf("closed router must not deliver")
	}
}

func TestWithFieldsKeepsEventValues(t *testing.T) {
	mem := sinks.NewMemory()
	pub := logging.WithFields(mem, map[string]any{"room": "main", "tick": "default"})

	pub.Publish(context.Background(), logging.Event{Type: "a", Extra: map[string]any{"tick": "mine"}})

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Extra["room"] != "main" || events[0].Extra["tick"] != "mine" {
		t.Fatalf("unexpected extra: %v", events[0].Extra)
	}
	if logging.WithFields(nil, nil) == nil {
		t.Fatalf("expected a nop publisher for nil")
	}
}

func TestMetricsSnapshot(t *testing.T) {
	var metrics logging.Metrics
	metrics.TelemetryAdd("ticks", 2)
	metrics.TelemetryStore("players", 3)
	metrics.TelemetryAdd("ticks", 1)

	snapshot := metrics.Snapshot()
	if snapshot["ticks"] != 3 || snapshot["players"] != 3 {
		t.Fatalf("unexpected snapshot: %v", snapshot)
	}
	snapshot["ticks"] = 99
	if metrics.Snapshot()["ticks"] != 3 {
		t.Fatalf("snapshot must be a copy")
	}

	var nilMetrics *logging.Metrics
	nilMetrics.TelemetryAdd("ignored", 1)
	if len(nilMetrics.Snapshot()) != 0 {
		t.Fatalf("expected empty snapshot for nil metrics")
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]logging.Severity{
		"debug":   logging.SeverityDebug,
		"warn":    logging.SeverityWarn,
		"error":   logging.SeverityError,
		"info":    logging.SeverityInfo,
		"verbose": logging.SeverityInfo,
	}
	for name, want := range cases {
		if got := logging.ParseSeverity(name); got != want {
			t.Fatalf("ParseSeverity(%q) = %v, want %v", name, got, want)
		}
	}
}
