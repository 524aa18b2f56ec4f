package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"signal-engine/internal/models"
)

func colorOutput(buf *bytes.Buffer) *Output {
	return &Output{writer: buf, colorEnabled: true}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in       models.Float
		decimals int
		want     string
	}{
		{models.Some(12.3456), 2, "12.35"},
		{models.Some(-0.5), 1, "-0.5"},
		{models.Some(7), 0, "7"},
		{models.None(), 2, NA},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in, tt.decimals); got != tt.want {
			t.Errorf("FormatFloat(%v, %d) = %q, want %q", tt.in, tt.decimals, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(time.Time{}); got != NA {
		t.Errorf("zero date = %q, want %q", got, NA)
	}
	d := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "2024-03-08" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDatePtr(nil); got != NA {
		t.Errorf("nil date = %q", got)
	}
	if got := FormatDatePtr(&d); got != "2024-03-08" {
		t.Errorf("FormatDatePtr = %q", got)
	}
}

func TestFormatCriteria(t *testing.T) {
	if got := FormatCriteria(models.ExitCriteria{}); got != "none" {
		t.Errorf("empty criteria = %q", got)
	}
	c := models.ExitCriteria{StopLoss: true, SupertrendBearish: true}
	got := FormatCriteria(c)
	if !strings.Contains(got, "stop_loss") || !strings.Contains(got, "supertrend_bearish") {
		t.Errorf("FormatCriteria = %q", got)
	}
	c.CustomPrice = models.Some(420)
	if got := FormatCriteria(c); !strings.Contains(got, "custom_price@") {
		t.Errorf("custom price missing from %q", got)
	}
}

func TestFormatAgo(t *testing.T) {
	if got := FormatAgo(time.Time{}); got != "never" {
		t.Errorf("zero time = %q", got)
	}
	if got := FormatAgo(time.Now().Add(-3 * 24 * time.Hour)); got != "3 days ago" {
		t.Errorf("FormatAgo = %q, want 3 days ago", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abcdefgh", 5); got != "abcd…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("non-positive max should not truncate, got %q", got)
	}
}

func TestTableAlignsColoredCells(t *testing.T) {
	var buf bytes.Buffer
	out := colorOutput(&buf)

	table := NewTable(out, "Symbol", "Signal")
	table.AddRow("INFY", out.Label(models.StrongBuy))
	table.AddRow("TCS", out.Label(models.Sell))
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and two rows, got %d lines", len(lines))
	}
	col := strings.Index(stripANSI(lines[2]), "▲▲")
	if col < 0 || strings.Index(stripANSI(lines[3]), "▼") != col {
		t.Errorf("signal column misaligned:\n%s", stripANSI(buf.String()))
	}
}

func TestOutputNoColor(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{writer: &buf}
	out.Success("done %d", 3)
	if buf.String() != "done 3\n" {
		t.Errorf("uncolored output = %q", buf.String())
	}
}

func TestProperty_StripANSIRemovesPaint(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)
	out := colorOutput(&bytes.Buffer{})
	attrs := []color.Attribute{color.FgGreen, color.FgRed, color.FgYellow, color.Bold, color.Faint}

	properties.Property("painted text strips back to the original", prop.ForAll(
		func(text string, idx int) bool {
			painted := out.paint(attrs[idx], text)
			return stripANSI(painted) == text && visibleLen(painted) == utf8.RuneCountInString(text)
		},
		gen.AlphaString(),
		gen.IntRange(0, len(attrs)-1),
	))

	properties.Property("truncate never exceeds max runes", prop.ForAll(
		func(text string, max int) bool {
			got := Truncate(text, max)
			n := utf8.RuneCountInString(got)
			if utf8.RuneCountInString(text) <= max {
				return got == text
			}
			return n == max
		},
		gen.AnyString(),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}
