package format

import (
	"strings"
	"testing"

	"github.com/dmoreira/transferwire/internal/models"
)

func testConfig() Config {
	return Config{
		TriggerPhrase:   "here we go",
		TriggerBanner:   "🚨 HERE WE GO! 🚨",
		CompletedBanner: "🚨 TRANSFER COMPLETED 🚨",
		CompletedTerms:  []string{"deal done", "transfer completed"},
		MaxLength:       280,
	}
}

func testSource(tier int, reliability float64) models.Source {
	return models.Source{
		ID:          "fabrizio",
		Handle:      "FabrizioRomano",
		Tier:        tier,
		Reliability: reliability,
	}
}

func TestBandFor_Partition(t *testing.T) {
	f, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		score float64
		want  string
	}{
		{100, "green"},
		{99.9, "green"},
		{90, "green"},
		{89.9, "yellow"},
		{70, "yellow"},
		{69.9, "orange"},
		{20, "orange"},
		{19.9, "red"},
		{0, "red"},
	}

	for _, tt := range tests {
		if got := f.BandFor(tt.score); got.Name != tt.want {
			t.Errorf("BandFor(%v) = %s, want %s", tt.score, got.Name, tt.want)
		}
	}
}

func TestValidateBands(t *testing.T) {
	tests := []struct {
		name    string
		bands   []Band
		wantErr bool
	}{
		{"default", DefaultBands(), false},
		{"empty", []Band{}, true},
		{"not descending", []Band{{Min: 70}, {Min: 90}, {Min: 0}}, true},
		{"duplicate cutoff", []Band{{Min: 70}, {Min: 70}, {Min: 0}}, true},
		{"gap at bottom", []Band{{Min: 90}, {Min: 20}}, true},
		{"top above 100", []Band{{Min: 120}, {Min: 0}}, true},
		{"two bands", []Band{{Min: 50, Name: "hi"}, {Min: 0, Name: "lo"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBands(tt.bands)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBands() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContainsTrigger_CaseInsensitive(t *testing.T) {
	f, _ := New(testConfig())

	if !f.ContainsTrigger("Here We Go! Player to sign tomorrow.") {
		t.Error("mixed-case trigger phrase not detected")
	}
	if !f.ContainsTrigger("confirmed, here we go") {
		t.Error("lowercase trigger phrase not detected")
	}
	if f.ContainsTrigger("medical scheduled for Monday") {
		t.Error("false positive trigger detection")
	}
}

func TestFormat_Tier1TriggerBanner(t *testing.T) {
	f, _ := New(testConfig())
	source := testSource(1, 99.9)

	out := f.Format(source, "Player X is joining Club Y on a five-year deal.", true)

	if !strings.HasPrefix(out, "🚨 HERE WE GO! 🚨\n") {
		t.Errorf("expected trigger banner prefix, got %q", out)
	}
	if !strings.Contains(out, "Source - @FabrizioRomano") {
		t.Errorf("missing attribution line: %q", out)
	}
	if !strings.HasSuffix(out, "[Reliability Score: 🟢 - 99.9%]") {
		t.Errorf("expected green 99.9%% credibility line, got %q", out)
	}
}

func TestFormat_TriggerRequiresTier1(t *testing.T) {
	f, _ := New(testConfig())
	source := testSource(2, 85)

	out := f.Format(source, "Player X is joining Club Y.", true)

	if strings.Contains(out, "HERE WE GO") {
		t.Errorf("tier-2 source must not get the trigger banner: %q", out)
	}
}

func TestFormat_CompletedBanner(t *testing.T) {
	f, _ := New(testConfig())
	source := testSource(2, 85)

	out := f.Format(source, "Deal done: Player X signs for Club Y until 2030.", false)

	if !strings.HasPrefix(out, "🚨 TRANSFER COMPLETED 🚨\n") {
		t.Errorf("expected completed banner, got %q", out)
	}
	if !strings.Contains(out, "🟡 - 85%") {
		t.Errorf("expected yellow 85%% credibility, got %q", out)
	}
}

func TestFormat_TriggerBannerWinsOverCompleted(t *testing.T) {
	f, _ := New(testConfig())
	source := testSource(1, 95)

	out := f.Format(source, "Deal done for Player X.", true)

	if !strings.HasPrefix(out, "🚨 HERE WE GO! 🚨\n") {
		t.Errorf("trigger banner should take precedence, got %q", out)
	}
	if strings.Contains(out, "TRANSFER COMPLETED") {
		t.Errorf("only one banner expected, got %q", out)
	}
}

func TestFormat_NoBanner(t *testing.T) {
	f, _ := New(testConfig())
	source := testSource(3, 55)

	body := "Club Y are monitoring Player X ahead of the window."
	out := f.Format(source, body, false)

	if !strings.HasPrefix(out, body) {
		t.Errorf("expected body-first output, got %q", out)
	}
	if !strings.Contains(out, "🟠 - 55%") {
		t.Errorf("expected orange 55%% credibility, got %q", out)
	}
}

func TestFormat_Deterministic(t *testing.T) {
	f, _ := New(testConfig())
	source := testSource(1, 92.5)

	first := f.Format(source, "Player X agrees personal terms.", true)
	second := f.Format(source, "Player X agrees personal terms.", true)

	if first != second {
		t.Error("identical inputs produced different output")
	}
}

func TestFormat_TruncatesLongBodyKeepsAttribution(t *testing.T) {
	f, _ := New(testConfig())
	source := testSource(2, 75)

	body := strings.Repeat("transfer saga update ", 30)
	out := f.Format(source, body, false)

	if got := len([]rune(out)); got > 280 {
		t.Errorf("output length %d exceeds limit", got)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("expected truncation marker, got %q", out)
	}
	if !strings.HasSuffix(out, "[Reliability Score: 🟡 - 75%]") {
		t.Errorf("attribution must survive truncation, got %q", out)
	}
}

func TestFormat_ScorePrecision(t *testing.T) {
	f, _ := New(testConfig())

	tests := []struct {
		score float64
		want  string
	}{
		{95, "95%"},
		{99.9, "99.9%"},
		{62.5, "62.5%"},
	}

	for _, tt := range tests {
		out := f.Format(testSource(2, tt.score), "body", false)
		if !strings.Contains(out, tt.want) {
			t.Errorf("score %v: expected %q in output %q", tt.score, tt.want, out)
		}
	}
}

func TestFormat_OverheadExhaustsLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLength = 40
	f, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	out := f.Format(testSource(1, 99.9), "Player X set to join Club Y on a permanent deal.", true)

	if strings.Contains(out, "Player X") {
		t.Errorf("body should be dropped when the overhead exceeds the limit, got %q", out)
	}
	if !strings.HasPrefix(out, "🚨 HERE WE GO! 🚨") {
		t.Errorf("banner must survive, got %q", out)
	}
	if !strings.HasSuffix(out, "[Reliability Score: 🟢 - 99.9%]") {
		t.Errorf("attribution must survive, got %q", out)
	}
	if floor := len([]rune(f.Format(testSource(1, 99.9), "", true))); len([]rune(out)) > floor {
		t.Errorf("output exceeds the bannered floor of %d runes: %q", floor, out)
	}
}
