package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSeed = `[
  {"city": "Paris", "country": "FR", "lat": 48.8566, "lon": 2.3522,
   "city_tags": ["museum", "art", "historical"],
   "pois": [{"id": "louvre", "name": "Louvre", "categories": ["entertainment.museum"]}]},
  {"city": "Nice", "country": "FR", "lat": 43.7102, "lon": 7.2620,
   "city_tags": ["beach", "warm"],
   "pois": [{"id": "promenade", "categories": ["beach.beach_resort"]}]}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(seed string) config {
	return config{
		seed:      seed,
		encoding:  "weighted",
		k:         300,
		top:       2,
		lambda:    0.7,
		diversify: true,
		logLevel:  "error",
	}
}

// firstRow returns the first result row printed under a profile header.
func firstRow(out, profile string) string {
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "== "+profile+" ") && i+2 < len(lines) {
			return lines[i+2]
		}
	}
	return ""
}

func TestRun_DefaultProfiles(t *testing.T) {
	cfg := testConfig(writeFile(t, "seed.json", testSeed))
	cfg.export = filepath.Join(t.TempDir(), "seed.parquet")

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, p := range defaultProfiles {
		if !strings.Contains(out.String(), "== "+p.Name+" ") {
			t.Errorf("expected a section for %q", p.Name)
		}
	}
	if row := firstRow(out.String(), "culture"); !strings.Contains(row, "Paris") {
		t.Errorf("expected Paris first for culture, got %q", row)
	}
	if _, err := os.Stat(cfg.export); err != nil {
		t.Errorf("expected exported parquet: %v", err)
	}

	// The exported catalog is a valid seed on its own.
	cfg.seed, cfg.export = cfg.export, ""
	out.Reset()
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run on exported seed: %v", err)
	}
}

func TestRun_ProfileFile(t *testing.T) {
	cfg := testConfig(writeFile(t, "seed.json", testSeed))
	cfg.profiles = writeFile(t, "profiles.yaml", `
profiles:
  - name: sun seeker
    tags: [beach, natural.beach]
    dislikes:
      museum: 5
`)

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if row := firstRow(out.String(), "sun seeker"); !strings.Contains(row, "Nice") {
		t.Errorf("expected Nice first, got %q", row)
	}
}

func TestRun_Errors(t *testing.T) {
	seed := writeFile(t, "seed.json", testSeed)

	tests := []struct {
		name   string
		mutate func(*config)
	}{
		{"missing seed", func(c *config) { c.seed = filepath.Join(t.TempDir(), "nope.json") }},
		{"unknown encoding", func(c *config) { c.encoding = "tfidf" }},
		{"bad log level", func(c *config) { c.logLevel = "loud" }},
		{"missing profiles", func(c *config) { c.profiles = filepath.Join(t.TempDir(), "nope.yaml") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(seed)
			tt.mutate(&cfg)
			if err := run(context.Background(), cfg, &bytes.Buffer{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadProfiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		want    int
	}{
		{"named", "profiles:\n  - name: a\n    tags: [beach]\n  - name: b\n    tags: [museum]\n", false, 2},
		{"unnamed gets a name", "profiles:\n  - tags: [beach]\n", false, 1},
		{"empty", "profiles: []\n", true, 0},
		{"no tags", "profiles:\n  - name: a\n", true, 0},
		{"invalid yaml", "profiles: [", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadProfiles(writeFile(t, "p.yaml", tt.content))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d profiles, got %d", tt.want, len(got))
			}
			for _, p := range got {
				if p.Name == "" {
					t.Error("expected every profile to be named")
				}
			}
		})
	}

	got, err := loadProfiles("")
	if err != nil || len(got) != len(defaultProfiles) {
		t.Errorf("expected built-in profiles, got %d (%v)", len(got), err)
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), config{version: true}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "citybench dev") {
		t.Errorf("unexpected version output %q", out.String())
	}
}
