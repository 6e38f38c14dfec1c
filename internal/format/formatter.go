package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmoreira/transferwire/internal/models"
)

// Band is one credibility bucket: scores at or above Min (and below the
// next band's Min) map to this icon.
type Band struct {
	Min  float64
	Icon string
	Name string
}

// DefaultBands is the canonical four-band scheme. The list must be sorted
// by Min descending and end at 0 so the bands partition [0,100] with no
// gaps or overlaps.
func DefaultBands() []Band {
	return []Band{
		{Min: 90, Icon: "🟢", Name: "green"},
		{Min: 70, Icon: "🟡", Name: "yellow"},
		{Min: 20, Icon: "🟠", Name: "orange"},
		{Min: 0, Icon: "🔴", Name: "red"},
	}
}

// Config holds everything the formatter needs.
type Config struct {
	TriggerPhrase   string
	TriggerBanner   string
	CompletedBanner string
	CompletedTerms  []string
	MaxLength       int
	Bands           []Band
}

// Formatter builds the final display text for a processed item. It is a
// pure function of its inputs: identical inputs always produce
// byte-identical output.
type Formatter struct {
	cfg Config
}

func New(cfg Config) (*Formatter, error) {
	if len(cfg.Bands) == 0 {
		cfg.Bands = DefaultBands()
	}
	if err := ValidateBands(cfg.Bands); err != nil {
		return nil, err
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 280
	}
	return &Formatter{cfg: cfg}, nil
}

// ValidateBands rejects band tables that leave gaps or overlap. Sorted
// descending with distinct cutoffs and a final Min of 0 is exactly a
// partition of [0,100].
func ValidateBands(bands []Band) error {
	if len(bands) == 0 {
		return fmt.Errorf("band table is empty")
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].Min >= bands[i-1].Min {
			return fmt.Errorf("band table not strictly descending at index %d", i)
		}
	}
	last := bands[len(bands)-1]
	if last.Min != 0 {
		return fmt.Errorf("band table leaves a gap below %v", last.Min)
	}
	if bands[0].Min > 100 {
		return fmt.Errorf("top band starts above 100")
	}
	return nil
}

// BandFor maps a reliability score to its band. Boundary scores land in
// the band whose Min equals the score.
func (f *Formatter) BandFor(score float64) Band {
	for _, b := range f.cfg.Bands {
		if score >= b.Min {
			return b
		}
	}
	return f.cfg.Bands[len(f.cfg.Bands)-1]
}

// ContainsTrigger reports whether the designated trigger phrase occurs in
// the original text, case-insensitively.
func (f *Formatter) ContainsTrigger(original string) bool {
	if f.cfg.TriggerPhrase == "" {
		return false
	}
	return strings.Contains(strings.ToLower(original), strings.ToLower(f.cfg.TriggerPhrase))
}

// Format assembles banner + body + attribution + credibility line.
// Banner choice: a tier-1 source with the trigger phrase gets the trigger
// banner; any source whose body indicates a completed transfer gets the
// completed banner; otherwise none.
func (f *Formatter) Format(source models.Source, rewritten string, triggerPresent bool) string {
	banner := ""
	switch {
	case source.Tier == 1 && triggerPresent:
		banner = f.cfg.TriggerBanner
	case f.indicatesCompleted(rewritten):
		banner = f.cfg.CompletedBanner
	}

	body := strings.TrimSpace(rewritten)
	out := f.assemble(banner, body, source)

	if runeLen(out) > f.cfg.MaxLength {
		overhead := runeLen(f.assemble(banner, "", source))
		budget := f.cfg.MaxLength - overhead - 3
		if budget > 0 {
			body = truncateRunes(body, budget) + "..."
		} else {
			// Banner and attribution alone exhaust the limit; dropping
			// the body is all that can be shed without losing them.
			body = ""
		}
		out = f.assemble(banner, body, source)
	}

	return out
}

func (f *Formatter) assemble(banner, body string, source models.Source) string {
	var b strings.Builder
	if banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString("Source - @")
	b.WriteString(source.Handle)
	b.WriteString("\n")
	band := f.BandFor(source.Reliability)
	b.WriteString("[Reliability Score: ")
	b.WriteString(band.Icon)
	b.WriteString(" - ")
	b.WriteString(formatScore(source.Reliability))
	b.WriteString("%]")
	return b.String()
}

func (f *Formatter) indicatesCompleted(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range f.cfg.CompletedTerms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// formatScore prints 95 as "95" and 99.9 as "99.9".
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
