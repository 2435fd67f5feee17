package settings

import (
	"encoding/json"
	"strings"
	"testing"

	"dbdump/internal/job"
)

func isTar(cfg job.Config) bool { return cfg.Format == job.FormatTar }

func testSchema() Schema {
	return Schema{
		ToolSection("pg_dump"),
		OutputSection(),
		{
			ID:     "format",
			Header: "Format",
			Controls: []Control{
				{Type: Select, SettingName: "format", Label: "Format",
					OnValueChange: func(cfg job.Config) job.Config {
						if cfg.Format == job.FormatTar {
							cfg.CompressionLevel = 0
						}
						return cfg
					}},
				{Type: Number, SettingName: "compressionLevel", Label: "Compression",
					Show:  func(cfg job.Config) bool { return !isTar(cfg) },
					Valid: ValidCompressionLevel},
			},
		},
		{
			ID:       "tar-only",
			Header:   "Tar",
			Show:     isTar,
			Controls: []Control{{Type: Checkbox, SettingName: "verbose", Label: "Verbose", Required: true}},
		},
		CustomArgsSection(),
	}
}

func TestValidateRequiredAndVisibility(t *testing.T) {
	s := testSchema()
	cfg := job.Config{Format: job.FormatCustom, CompressionLevel: 12}

	problems := s.Validate(cfg)
	got := map[string]string{}
	for _, p := range problems {
		got[p.SettingName] = p.Message
	}

	for _, name := range []string{"outputPath", "fileName", "compressionLevel"} {
		if _, ok := got[name]; !ok {
			t.Errorf("expected a problem for %s, got %v", name, got)
		}
	}
	if _, ok := got["verbose"]; ok {
		t.Error("controls in hidden sections must not be validated")
	}
}

func TestHiddenControlIsValid(t *testing.T) {
	s := testSchema()
	cfg := job.Config{Format: job.FormatTar, CompressionLevel: 99}
	for _, p := range s.Validate(cfg) {
		if p.SettingName == "compressionLevel" {
			t.Error("hidden compression control reported a problem")
		}
	}
}

func TestEvaluateIsReactive(t *testing.T) {
	s := testSchema()

	before := s.Evaluate(job.Config{Format: job.FormatCustom})
	after := s.Evaluate(job.Config{Format: job.FormatTar})

	if findControl(before, "compressionLevel").Visible != true {
		t.Error("compression visible for custom format")
	}
	if findControl(after, "compressionLevel").Visible {
		t.Error("compression hidden for tar format")
	}
	if findSection(before, "tar-only").Visible || !findSection(after, "tar-only").Visible {
		t.Error("section visibility must follow the config")
	}
	if v := findControl(after, "format").Value; v != job.FormatTar {
		t.Errorf("format value = %v", v)
	}
}

func TestApplyChanges(t *testing.T) {
	s := testSchema()
	cfg := job.Config{Format: job.FormatTar, CompressionLevel: 6}

	if got := s.ApplyChanges(cfg, []string{"verbose"}); got.CompressionLevel != 6 {
		t.Error("unrelated change must not run format hook")
	}
	if got := s.ApplyChanges(cfg, []string{"format"}); got.CompressionLevel != 0 {
		t.Errorf("format hook not applied: %d", got.CompressionLevel)
	}
}

func TestApplyChangesKeepsExplicitValues(t *testing.T) {
	s := Schema{{
		ID: "input",
		Controls: []Control{
			{Type: FilePicker, SettingName: "inputFile", Label: "Input",
				OnValueChange: func(cfg job.Config) job.Config {
					cfg.Format = job.FormatCustom
					cfg.Verbose = true
					return cfg
				}},
			{Type: Select, SettingName: "format", Label: "Format",
				OnValueChange: func(cfg job.Config) job.Config {
					if cfg.Format == job.FormatTar {
						cfg.CompressionLevel = 0
					}
					return cfg
				}},
		},
	}}

	tests := []struct {
		name     string
		cfg      job.Config
		changed  []string
		wantFmt  string
		wantComp int
	}{
		{
			name:     "hook derives format",
			cfg:      job.Config{InputFile: "app.dump", Format: job.FormatTar, CompressionLevel: 6},
			changed:  []string{"inputFile"},
			wantFmt:  job.FormatCustom,
			wantComp: 6,
		},
		{
			name:     "explicit format wins",
			cfg:      job.Config{InputFile: "app.dump", Format: job.FormatTar, CompressionLevel: 6},
			changed:  []string{"format", "inputFile"},
			wantFmt:  job.FormatTar,
			wantComp: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.ApplyChanges(tt.cfg, tt.changed)
			if got.Format != tt.wantFmt || got.CompressionLevel != tt.wantComp {
				t.Errorf("format = %q, compression = %d", got.Format, got.CompressionLevel)
			}
			if !got.Verbose {
				t.Error("writes to settings outside the change must be kept")
			}
		})
	}
}

func TestValidFileName(t *testing.T) {
	if msg := ValidFileName(job.Config{FileName: "a/b.sql"}); msg == "" {
		t.Error("directory in file name should be invalid")
	}
	if msg := ValidFileName(job.Config{FileName: "b.sql"}); msg != "" {
		t.Errorf("unexpected problem: %s", msg)
	}
}

func TestValidCustomArgs(t *testing.T) {
	if msg := ValidCustomArgs(job.Config{CustomArgs: `--x "open`}); !strings.Contains(msg, "cannot be parsed") {
		t.Errorf("got %q", msg)
	}
}

func TestSchemaJSONOmitsPredicates(t *testing.T) {
	data, err := json.Marshal(testSchema().Evaluate(job.Config{}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"controlType":"filepicker"`) || !strings.Contains(s, `"find-dump-tool"`) {
		t.Errorf("unexpected JSON: %s", s)
	}
}

func findSection(states []SectionState, id string) SectionState {
	for _, s := range states {
		if s.ID == id {
			return s
		}
	}
	return SectionState{}
}

func findControl(states []SectionState, setting string) ControlState {
	for _, s := range states {
		for _, c := range s.Controls {
			if c.SettingName == setting {
				return c
			}
		}
	}
	return ControlState{}
}
