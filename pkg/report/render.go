package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// Report formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const percentScale = 100

// Options controls rendering.
type Options struct {
	// NoColor disables ANSI colors in the table format.
	NoColor bool
	// ShowZero lists categories and stages with a zero count in the table format.
	ShowZero bool
}

// Render writes summaries to w in the given format.
func Render(w io.Writer, format string, summaries []Summary, opts Options) error {
	switch format {
	case FormatTable:
		return renderTable(w, summaries, opts)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(summaries)
		if err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		err := enc.Encode(summaries)
		if err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}

		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

type palette struct {
	title, okay, missing, flagged *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		title:   color.New(color.Bold),
		okay:    color.New(color.FgGreen),
		missing: color.New(color.FgYellow),
		flagged: color.New(color.FgRed),
	}

	if noColor {
		for _, c := range []*color.Color{p.title, p.okay, p.missing, p.flagged} {
			c.DisableColor()
		}
	}

	return p
}

func (p palette) category(c series.Category) string {
	switch {
	case c == series.CategoryOkay:
		return p.okay.Sprint(c)
	case c == series.CategoryMissing:
		return p.missing.Sprint(c)
	default:
		return p.flagged.Sprint(c)
	}
}

func renderTable(w io.Writer, summaries []Summary, opts Options) error {
	p := newPalette(opts.NoColor)

	for i, sum := range summaries {
		if i > 0 {
			_, err := fmt.Fprintln(w)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}

		iqr := "n/a"
		if sum.IQRRelativeDeltas != nil {
			iqr = fmt.Sprintf("%.4g", *sum.IQRRelativeDeltas)
		}

		_, err := fmt.Fprintf(w, "%s  %s samples, %.1f%% okay, IQR of relative deltas %s\n",
			p.title.Sprint(sum.Name), humanize.Comma(int64(sum.Samples)), sum.OkayFraction*percentScale, iqr)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		_, err = fmt.Fprintln(w, categoryTable(sum, p, opts.ShowZero))
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	return nil
}

func categoryTable(sum Summary, p palette, showZero bool) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"Category", "Samples", "Share"})

	for _, cc := range sum.Categories {
		if cc.Count == 0 && !showZero && cc.Category != series.CategoryOkay {
			continue
		}

		tbl.AppendRow(table.Row{
			p.category(cc.Category),
			humanize.Comma(int64(cc.Count)),
			fmt.Sprintf("%.2f%%", cc.Fraction*percentScale),
		})
	}

	tbl.AppendFooter(table.Row{"Flagged", humanize.Comma(int64(sum.Flagged)), ""})

	return tbl.Render()
}
