package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sigscan/internal/config"
	"github.com/nao1215/sigscan/internal/model"
	"github.com/nao1215/sigscan/internal/report"
)

// TestNewScanCmd tests the scan command creation.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "scan [guid...]" {
			t.Errorf("expected use 'scan [guid...]', got %q", cmd.Use)
		}
	})

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"path", "p", ""},
		{"all", "a", "false"},
		{"descendants", "d", "false"},
		{"yara", "", config.DefaultYaraPath},
		{"rule", "r", "[]"},
		{"concurrency", "n", "4"},
		{"tag", "", "true"},
		{"root-tag", "", config.DefaultRootTag},
		{"custom-metadata", "", "true"},
		{"custom-field", "", config.DefaultCustomField},
		{"status-interval", "", "1s"},
		{"log-interval", "", "5s"},
		{"output", "o", ""},
		{"json", "j", "false"},
	}
	for _, tt := range tests {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// parsedScanCmd returns the scan subcommand of a root command with args
// parsed, global flags included.
func parsedScanCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	root := NewRootCmd()
	scan, _, err := root.Find([]string{"scan"})
	if err != nil {
		t.Fatalf("scan command not found: %v", err)
	}
	if err := scan.ParseFlags(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return scan
}

// TestBuildScanConfig tests how the configuration file and flags combine.
func TestBuildScanConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sigscan.yaml")
	content := `
yaraPath: /opt/yara/bin/yara
rulesDir: /opt/rules
rules: [Emotet, UPX]
concurrency: 8
rootTag: Malware
tagMatches: false
logInterval: 30s
`
	if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Run("file values apply when flags are unset", func(t *testing.T) {
		t.Parallel()

		cmd := parsedScanCmd(t, "-c", cfgPath, "--all")
		cfg, req, err := buildScanConfig(cmd, cmd.Flags().Args())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.YaraPath != "/opt/yara/bin/yara" || cfg.RulesDir != "/opt/rules" {
			t.Errorf("unexpected paths %q %q", cfg.YaraPath, cfg.RulesDir)
		}
		if strings.Join(cfg.Rules, ",") != "Emotet,UPX" {
			t.Errorf("unexpected rules %v", cfg.Rules)
		}
		if cfg.Concurrency != 8 || cfg.RootTag != "Malware" || cfg.TagMatches {
			t.Errorf("unexpected config %+v", cfg)
		}
		if cfg.LogInterval != 30*time.Second || cfg.StatusInterval != config.DefaultStatusInterval {
			t.Errorf("unexpected intervals %v %v", cfg.StatusInterval, cfg.LogInterval)
		}
		if !req.selection.All {
			t.Error("expected --all selection")
		}
		if cfg.ConfigFilePath != cfgPath {
			t.Errorf("expected config path %q, got %q", cfgPath, cfg.ConfigFilePath)
		}
	})

	t.Run("flags override file values", func(t *testing.T) {
		t.Parallel()

		cmd := parsedScanCmd(t, "-c", cfgPath, "-n", "2", "-r", "UPX", "--tag", "--root-tag", "Y",
			"--catalog-dir", "/cases/42", "-p", "evidence/mail", "-j", "g1", "g2")
		cfg, req, err := buildScanConfig(cmd, cmd.Flags().Args())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Concurrency != 2 || strings.Join(cfg.Rules, ",") != "UPX" {
			t.Errorf("unexpected config %+v", cfg)
		}
		if !cfg.TagMatches || cfg.RootTag != "Y" || cfg.CatalogDir != "/cases/42" {
			t.Errorf("unexpected annotation config %+v", cfg)
		}
		if req.selection.PathPrefix != "evidence/mail" || strings.Join(req.selection.GUIDs, ",") != "g1,g2" {
			t.Errorf("unexpected selection %+v", req.selection)
		}
		if !req.jsonReport {
			t.Error("expected JSON report")
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := parsedScanCmd(t, "-c", filepath.Join(dir, "missing.yaml"))
		_, _, err := buildScanConfig(cmd, nil)
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})
}

// TestPipelineOptions tests which annotation options a configuration
// enables.
func TestPipelineOptions(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	base := len(pipelineOptions(cfg, model.RuleSet{}, nil, nil, nil, nil, nil))

	cfg.TagMatches = false
	if got := len(pipelineOptions(cfg, model.RuleSet{}, nil, nil, nil, nil, nil)); got != base-1 {
		t.Errorf("expected tagging option to be dropped, got %d options", got)
	}
	cfg.RecordCustomMetadata = false
	if got := len(pipelineOptions(cfg, model.RuleSet{}, nil, nil, nil, nil, nil)); got != base-2 {
		t.Errorf("expected custom metadata option to be dropped, got %d options", got)
	}
}

// TestMatchCollector tests recording matched outcomes.
func TestMatchCollector(t *testing.T) {
	t.Parallel()

	c := &matchCollector{}
	c.Record(model.ScanOutcome{Item: model.Item{GUID: "a"}, MatchedRules: []string{"UPX", "Emotet", "UPX"}})
	c.Record(model.ScanOutcome{Item: model.Item{GUID: "b"}, MatchedRules: []string{"R1"}})

	if len(c.matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(c.matches))
	}
	if got := strings.Join(c.matches[0].Rules, ","); got != "UPX,Emotet" {
		t.Errorf("expected duplicates removed in order, got %s", got)
	}
}

// TestWriteReport tests writing run reports to files.
func TestWriteReport(t *testing.T) {
	t.Parallel()

	run := model.RunRecord{
		ID:         "run-1",
		StartedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		FinishedAt: time.Date(2024, 1, 2, 3, 5, 5, 0, time.UTC),
		Rules:      []string{"R1"},
		Summary:    model.Summary{Total: 1, Exported: 1, Scanned: 1, Matched: 1, Annotated: 1},
	}
	matches := []model.MatchedItem{{Item: model.Item{GUID: "g", PathNames: []string{"x", "y.exe"}, Kind: "executable"}, Rules: []string{"R1"}}}

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "reports", "run.md")
		if err := writeReport(path, false, run, matches); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# Signature Scan Report") || !strings.Contains(string(content), "x/y.exe") {
			t.Errorf("unexpected report:\n%s", content)
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "run.json")
		if err := writeReport(path, true, run, matches); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var got report.RunReport
		if err := json.Unmarshal(content, &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Run.ID != "run-1" || len(got.Matches) != 1 {
			t.Errorf("unexpected report %+v", got)
		}
	})
}
