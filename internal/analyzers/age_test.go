package analyzers

import (
	"reflect"
	"testing"
	"time"

	"baize/internal/models"
)

func ts(t time.Time) *time.Time { return &t }

func TestAnalyzeAge_OldPlistNewBinary(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	item := &models.PersistenceItem{
		Name:          "com.x.agent",
		PlistCreated:  ts(now.AddDate(0, 0, -45)),
		BinaryCreated: ts(now.AddDate(0, 0, -3)),
	}
	res := AnalyzeAge(item, now)
	f := findingByType(res.Findings, "old_plist_new_binary")
	if f == nil {
		t.Fatalf("expected old_plist_new_binary, got %+v", res.Findings)
	}
	if f.Severity != models.SeverityCritical {
		t.Errorf("severity = %s, want critical", f.Severity)
	}
	if f.RiskPoints != 25 {
		t.Errorf("riskPoints = %d, want 25 (analyzer override)", f.RiskPoints)
	}
	if got := f.Evidence["timeDifference"]; got != "42 days difference" {
		t.Errorf("timeDifference = %q, want \"42 days difference\"", got)
	}
}

func TestAnalyzeAge_SilentBinarySwap(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	item := &models.PersistenceItem{
		Name:           "com.x.agent",
		PlistModified:  ts(now.AddDate(0, 0, -90)),
		BinaryModified: ts(now.AddDate(0, 0, -2)),
		BinaryCreated:  ts(now.AddDate(0, 0, -90)),
	}
	res := AnalyzeAge(item, now)
	if findingByType(res.Findings, "silent_binary_swap") == nil {
		t.Fatalf("expected silent_binary_swap, got %+v", res.Findings)
	}
}

func TestAnalyzeAge_TimestampManipulation(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	item := &models.PersistenceItem{
		Name:           "com.x.agent",
		BinaryCreated:  ts(now.AddDate(0, 0, -1)),
		BinaryModified: ts(now.AddDate(0, 0, -10)),
	}
	res := AnalyzeAge(item, now)
	f := findingByType(res.Findings, "timestamp_manipulation")
	if f == nil {
		t.Fatalf("expected timestamp_manipulation, got %+v", res.Findings)
	}
	if f.Severity != models.SeverityCritical {
		t.Errorf("severity = %s, want critical", f.Severity)
	}
}

func TestAnalyzeAge_UpdaterSuppressesPostInstall(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	launchBase := func(name string) *models.PersistenceItem {
		return &models.PersistenceItem{
			Name:           name,
			PlistCreated:   ts(now.AddDate(0, 0, -200)),
			BinaryModified: ts(now.AddDate(0, 0, -30)),
		}
	}
	res := AnalyzeAge(launchBase("com.x.agent"), now)
	if findingByType(res.Findings, "post_install_modification") == nil {
		t.Fatalf("expected post_install_modification, got %+v", res.Findings)
	}
	res = AnalyzeAge(launchBase("com.x.autoupdate"), now)
	if findingByType(res.Findings, "post_install_modification") != nil {
		t.Error("updater-named item should be suppressed")
	}
}

func TestAnalyzeAge_OddHourModification(t *testing.T) {
	// 凌晨时段按本地时区判定，基准时刻用 time.Local 固定小时
	modified := time.Date(2026, 7, 30, 3, 0, 0, 0, time.Local)
	now := modified.AddDate(0, 0, 2)
	item := &models.PersistenceItem{
		Name:           "com.x.agent",
		BinaryModified: ts(modified),
	}
	res := AnalyzeAge(item, now)
	f := findingByType(res.Findings, "odd_hour_modification")
	if f == nil {
		t.Fatalf("expected odd_hour_modification, got %+v", res.Findings)
	}
	if f.Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want medium", f.Severity)
	}
	if f.RiskPoints != 10 {
		t.Errorf("riskPoints = %d, want 10", f.RiskPoints)
	}
	if got := f.Evidence["hour"]; got != "3" {
		t.Errorf("hour = %q, want \"3\"", got)
	}
}

func TestAnalyzeAge_OddHourWindowBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		modified time.Time
		daysAgo  int
		want     bool
	}{
		{"hour 2 lower bound", time.Date(2026, 7, 30, 2, 0, 0, 0, time.Local), 2, true},
		{"hour 5 upper bound", time.Date(2026, 7, 30, 5, 59, 0, 0, time.Local), 2, true},
		{"hour 6 outside window", time.Date(2026, 7, 30, 6, 0, 0, 0, time.Local), 2, false},
		{"hour 1 outside window", time.Date(2026, 7, 30, 1, 0, 0, 0, time.Local), 2, false},
		{"3am but 10 days ago", time.Date(2026, 7, 20, 3, 0, 0, 0, time.Local), 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.modified.AddDate(0, 0, tt.daysAgo)
			item := &models.PersistenceItem{
				Name:           "com.x.agent",
				BinaryModified: ts(tt.modified),
			}
			res := AnalyzeAge(item, now)
			got := findingByType(res.Findings, "odd_hour_modification") != nil
			if got != tt.want {
				t.Errorf("odd_hour_modification present = %v, want %v (%+v)", got, tt.want, res.Findings)
			}
		})
	}
}

func TestAnalyzeAge_NoTimestampsNoFindings(t *testing.T) {
	res := AnalyzeAge(&models.PersistenceItem{Name: "com.x.agent"}, time.Now())
	if len(res.Findings) != 0 || res.Points != 0 {
		t.Errorf("expected no findings without timestamps, got %+v", res.Findings)
	}
	if res.Severity != models.SeverityLow {
		t.Errorf("severity = %s, want low", res.Severity)
	}
}

func TestAnalyzeAge_ChecksAreIndependent(t *testing.T) {
	// 用本地时区固定下午时刻，避免凌晨修改检查受时区影响
	now := time.Date(2026, 8, 1, 16, 0, 0, 0, time.Local)
	// 同时满足：旧 plist 新二进制、静默替换、创建漂移
	item := &models.PersistenceItem{
		Name:           "com.x.agent",
		PlistCreated:   ts(now.AddDate(0, 0, -200)),
		PlistModified:  ts(now.AddDate(0, 0, -200)),
		BinaryCreated:  ts(now.AddDate(0, 0, -3)),
		BinaryModified: ts(now.AddDate(0, 0, -3)),
	}
	res := AnalyzeAge(item, now)
	for _, typ := range []string{"old_plist_new_binary", "silent_binary_swap", "age_mismatch", "post_install_modification"} {
		if findingByType(res.Findings, typ) == nil {
			t.Errorf("missing %s (checks must not suppress each other)", typ)
		}
	}
	wantPoints := 25 + 20 + 10 + 15
	if res.Points != wantPoints {
		t.Errorf("points = %d, want %d (sum)", res.Points, wantPoints)
	}
	if res.Severity != models.SeverityCritical {
		t.Errorf("severity = %s, want critical (max)", res.Severity)
	}
}

func TestAnalyzeAge_Idempotent(t *testing.T) {
	now := time.Now()
	item := &models.PersistenceItem{
		Name:           "com.x.agent",
		PlistCreated:   ts(now.AddDate(0, 0, -45)),
		BinaryCreated:  ts(now.AddDate(0, 0, -3)),
		BinaryModified: ts(now.AddDate(0, 0, -3)),
	}
	if !reflect.DeepEqual(AnalyzeAge(item, now), AnalyzeAge(item, now)) {
		t.Error("analyzer not idempotent")
	}
}
