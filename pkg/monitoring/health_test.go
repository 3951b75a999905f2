package monitoring

import (
	"fmt"
	"testing"
)

func TestHealthCheckerAggregation(t *testing.T) {
	hc := NewHealthChecker("almanac", "test")

	hc.AddCheck("always_ok", func() CheckResult {
		return CheckResult{Status: StatusHealthy}
	})

	status := hc.CheckHealth()
	if status.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", status.Status)
	}
	if status.Service != "almanac" {
		t.Errorf("expected service almanac, got %s", status.Service)
	}

	hc.AddCheck("flaky", func() CheckResult {
		return CheckResult{Status: StatusDegraded, Message: "slow"}
	})
	status = hc.CheckHealth()
	if status.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", status.Status)
	}

	hc.AddCheck("down", func() CheckResult {
		return CheckResult{Status: StatusUnhealthy, Message: "boom"}
	})
	status = hc.CheckHealth()
	if status.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", status.Status)
	}
	if len(status.Checks) != 3 {
		t.Errorf("expected 3 check results, got %d", len(status.Checks))
	}
}

func TestConfigurationHealthCheck(t *testing.T) {
	check := ConfigurationHealthCheck(map[string]string{
		"CRON_SECRET":  "s3cret",
		"DATABASE_URL": "",
	})
	result := check()
	if result.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy with missing config, got %s", result.Status)
	}

	check = ConfigurationHealthCheck(map[string]string{
		"CRON_SECRET": "s3cret",
	})
	result = check()
	if result.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s: %s", result.Status, result.Message)
	}
}

func TestRedisHealthCheckNilClient(t *testing.T) {
	check := RedisHealthCheck(nil)
	result := check()
	if result.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy for nil client, got %s", result.Status)
	}
}

func ExampleHealthChecker() {
	hc := NewHealthChecker("almanac", "1.0.0")
	hc.AddCheck("config", ConfigurationHealthCheck(map[string]string{"CRON_SECRET": "x"}))
	fmt.Println(hc.CheckHealth().Status)
	// Output: healthy
}
