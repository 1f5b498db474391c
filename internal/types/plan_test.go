package types

import "testing"

func TestActionPlanValidate(t *testing.T) {
	plan := &ActionPlan{
		Summary:    "Add input validation to the login form",
		Steps:      []string{"Add empty-input check", "Add unit test"},
		Files:      []string{"src/login/form.go"},
		Confidence: 80,
	}
	if err := plan.Validate(); err != nil {
		t.Errorf("valid plan failed validation: %v", err)
	}

	noSteps := &ActionPlan{Summary: "x", Files: []string{"a.go"}, Confidence: 50}
	if err := noSteps.Validate(); err == nil {
		t.Error("plan without steps should fail validation")
	}

	noFiles := &ActionPlan{Summary: "x", Steps: []string{"do it"}, Confidence: 50}
	if err := noFiles.Validate(); err == nil {
		t.Error("plan without files should fail validation")
	}

	badConf := &ActionPlan{Summary: "x", Steps: []string{"s"}, Files: []string{"f"}, Confidence: 101}
	if err := badConf.Validate(); err == nil {
		t.Error("confidence above 100 should fail validation")
	}

	var nilPlan *ActionPlan
	if err := nilPlan.Validate(); err == nil {
		t.Error("nil plan should fail validation")
	}
}

func TestDeriveRiskSensitivePaths(t *testing.T) {
	cfg := DefaultRiskConfig()

	high := &ActionPlan{Steps: []string{"s"}, Files: []string{"src/auth/login.go"}}
	if got := DeriveRisk(high, cfg); got != RiskHigh {
		t.Errorf("auth path: got %s, want %s", got, RiskHigh)
	}

	low := &ActionPlan{Steps: []string{"s"}, Files: []string{"README.md"}}
	if got := DeriveRisk(low, cfg); got != RiskLow {
		t.Errorf("README: got %s, want %s", got, RiskLow)
	}

	// Pattern match is case-insensitive
	upper := &ActionPlan{Steps: []string{"s"}, Files: []string{"src/Payment/charge.go"}}
	if got := DeriveRisk(upper, cfg); got != RiskHigh {
		t.Errorf("Payment path: got %s, want %s", got, RiskHigh)
	}
}

func TestDeriveRiskFileThreshold(t *testing.T) {
	cfg := RiskConfig{SensitivePatterns: []string{"auth"}, FileThreshold: 2}

	medium := &ActionPlan{
		Steps: []string{"s"},
		Files: []string{"a.go", "b.go", "c.go"},
	}
	if got := DeriveRisk(medium, cfg); got != RiskMedium {
		t.Errorf("3 files over threshold 2: got %s, want %s", got, RiskMedium)
	}

	// Duplicate paths count once
	dupes := &ActionPlan{
		Steps: []string{"s"},
		Files: []string{"a.go", "a.go", "b.go"},
	}
	if got := DeriveRisk(dupes, cfg); got != RiskLow {
		t.Errorf("2 distinct files at threshold 2: got %s, want %s", got, RiskLow)
	}

	// Sensitive paths win over the threshold
	both := &ActionPlan{
		Steps: []string{"s"},
		Files: []string{"a.go", "b.go", "c.go", "internal/auth/token.go"},
	}
	if got := DeriveRisk(both, cfg); got != RiskHigh {
		t.Errorf("sensitive + many files: got %s, want %s", got, RiskHigh)
	}
}

func TestDeriveRiskIsPure(t *testing.T) {
	cfg := DefaultRiskConfig()
	plan := &ActionPlan{Steps: []string{"s"}, Files: []string{"src/auth/login.go"}}
	first := DeriveRisk(plan, cfg)
	for i := 0; i < 10; i++ {
		if got := DeriveRisk(plan, cfg); got != first {
			t.Fatalf("risk derivation not deterministic: %s then %s", first, got)
		}
	}
}

func TestDeriveRiskNilPlan(t *testing.T) {
	if got := DeriveRisk(nil, DefaultRiskConfig()); got != RiskLow {
		t.Errorf("nil plan: got %s, want %s", got, RiskLow)
	}
}
