package health

import (
	"context"
	"testing"
	"time"
)

type stubChecker struct {
	result CheckResult
}

func (s stubChecker) Check(context.Context) CheckResult { return s.result }

func TestProbeRunnerReady(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond,
		stubChecker{result: CheckResult{Name: "db", Healthy: true}},
		stubChecker{result: CheckResult{Name: "redis", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatal("expected ready")
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
}

func TestProbeRunnerUnready(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond,
		stubChecker{result: CheckResult{Name: "db", Healthy: true}},
		stubChecker{result: CheckResult{Name: "redis", Healthy: false, Error: "down"}},
	)
	ready, _ := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready when one checker fails")
	}
}

func TestProbeRunnerSkipsNilCheckers(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond,
		nil,
		stubChecker{result: CheckResult{Name: "db", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if !ready || len(results) != 1 {
		t.Fatalf("ready = %v, results = %+v", ready, results)
	}
}

func TestPhotoDirChecker(t *testing.T) {
	dir := t.TempDir()
	res := NewPhotoDirChecker(dir).Check(context.Background())
	if !res.Healthy {
		t.Fatalf("existing dir reported unhealthy: %+v", res)
	}

	res = NewPhotoDirChecker(dir + "/missing").Check(context.Background())
	if res.Healthy {
		t.Fatal("missing dir reported healthy")
	}
}
