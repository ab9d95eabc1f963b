package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDir = "../../curriculum"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--dir", sampleDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		wantIn  []string
	}{
		{
			name:   "validate sample",
			args:   []string{"validate"},
			wantIn: []string{"CM1 - Matemática.json", "CH1 - Ciências Humanas.yaml", "valid: true"},
		},
		{
			name:   "validate json",
			args:   []string{"validate", "--json"},
			wantIn: []string{`"isValid": true`},
		},
		{
			name:   "synthetic tiers",
			args:   []string{"tiers", "CM1.GEO", "--completed", "CM1.GEO01"},
			wantIn: []string{"Geometria Plana (5 skills, synthetic prerequisites)", "CM1.GEO05", "progress: 1/5 completed, 1 available"},
		},
		{
			name:   "authored tiers",
			args:   []string{"tiers", "CM1.ALG"},
			wantIn: []string{"authored prerequisites", "CM1.ALG02, CM1.ALG04"},
		},
		{
			name:    "unknown discipline",
			args:    []string{"tiers", "NOPE"},
			wantErr: true,
			wantIn:  []string{`discipline "NOPE" not found`},
		},
		{
			name:   "search",
			args:   []string{"search", "ÁREA"},
			wantIn: []string{"CM1.GEO02", "CM1.GEO05", "4 skill(s)"},
		},
		{
			name:   "search by difficulty",
			args:   []string{"search", "--difficulty", "advanced"},
			wantIn: []string{"CM1.ALG05", "CM1.GEO05", "CH1.HIS03", "3 skill(s)"},
		},
		{
			name:    "bad difficulty",
			args:    []string{"search", "--difficulty", "expert"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v\n%s", err, tt.wantErr, out)
			}
			for _, want := range tt.wantIn {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestValidate_InvalidExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	bad := `{"curriculumData":{"areas":[{"id":"X","name":"X","disciplines":[{"id":"D","name":"D","mainTopics":[]}]}]}}`
	if err := os.WriteFile(filepath.Join(dir, "AB1 - Broken.json"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--dir", dir, "validate"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("validate should fail on a discipline without topics")
	}
	if !strings.Contains(out.String(), "MISSING_TOPICS") {
		t.Errorf("output = %s", out.String())
	}
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	out, err := execute(t, "export", path)
	if err != nil {
		t.Fatalf("export error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "4 disciplines, 13 skills") {
		t.Errorf("output = %s", out)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Errorf("workbook not written: %v", err)
	}
}
