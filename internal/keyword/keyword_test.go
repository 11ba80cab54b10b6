package keyword

import (
	"testing"
)

func defaultRules() []Rule {
	return []Rule{
		{Mode: "autopilot", Patterns: []string{"autopilot"}},
		{Mode: "pipeline", Patterns: []string{"team-pipeline", "teampipeline"}},
		{Mode: "ralph", Patterns: []string{"ralph"}},
		{Mode: "ultrawork", Patterns: []string{"ultrawork", "ulw"}},
	}
}

func TestNewDetectorRejectsInvalidGlob(t *testing.T) {
	_, err := NewDetector([]Rule{{Mode: "m", Patterns: []string{"[unclosed"}}})
	if err == nil {
		t.Error("expected error for invalid glob pattern")
	}
}

func TestDetect(t *testing.T) {
	d, err := NewDetector(defaultRules())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		prompt string
		want   []string
	}{
		{"plain trigger", "autopilot build the feature", []string{"autopilot"}},
		{"case insensitive", "use AUTOPILOT here", []string{"autopilot"}},
		{"punctuation boundary", "let's go, autopilot!", []string{"autopilot"}},
		{"alias", "ulw finish everything", []string{"ultrawork"}},
		{"hyphenated", "run team-pipeline on this", []string{"pipeline"}},
		{"multiple modes", "ralph this until done, ultrawork style", []string{"ralph", "ultrawork"}},
		{"no trigger", "please fix the login bug", nil},
		{"substring is not a token", "autopiloting is not a word", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := d.Detect(tt.prompt)
			if len(matches) != len(tt.want) {
				t.Fatalf("Detect(%q) = %v, want modes %v", tt.prompt, matches, tt.want)
			}
			for i, m := range matches {
				if m.Mode != tt.want[i] {
					t.Errorf("match[%d].Mode = %s, want %s", i, m.Mode, tt.want[i])
				}
			}
		})
	}
}

func TestDetectOneMatchPerMode(t *testing.T) {
	d, err := NewDetector(defaultRules())
	if err != nil {
		t.Fatal(err)
	}
	matches := d.Detect("ultrawork ulw ultrawork")
	if len(matches) != 1 {
		t.Errorf("Detect = %v, want a single ultrawork match", matches)
	}
}

func TestDetectWholePromptPattern(t *testing.T) {
	d, err := NewDetector([]Rule{{Mode: "pipeline", Patterns: []string{"*team pipeline*"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Detect("run the team pipeline for this repo"); len(got) != 1 {
		t.Errorf("whole-prompt pattern did not match: %v", got)
	}
	if got := d.Detect("team spirit in the pipeline"); len(got) != 0 {
		t.Errorf("unexpected match: %v", got)
	}
}

func TestDetectGlobWildcards(t *testing.T) {
	d, err := NewDetector([]Rule{{Mode: "ralph", Patterns: []string{"ralph*"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Detect("ralphmode engage"); len(got) != 1 {
		t.Errorf("wildcard token pattern did not match: %v", got)
	}
}
