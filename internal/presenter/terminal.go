package presenter

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Render writes a human-readable report to w. Unavailable metrics show as
// "n/a" with their reason rather than being dropped or zeroed.
func Render(w io.Writer, p *Payload) {
	title := color.New(color.FgCyan, color.Bold)
	heading := color.New(color.FgYellow, color.Bold)
	dim := color.New(color.Faint)

	title.Fprintf(w, "%s\n", p.Repo)
	dim.Fprintf(w, "generated %s\n", p.GeneratedAt.Format("2006-01-02 15:04 MST"))

	for _, section := range p.Sections {
		fmt.Fprintln(w)
		heading.Fprintf(w, "%s\n", section.Title)
		for _, it := range section.Items {
			if it.Unavailable {
				fmt.Fprintf(w, "  %-28s ", it.Label)
				dim.Fprintf(w, "n/a (%s)\n", it.Reason)
				continue
			}
			fmt.Fprintf(w, "  %-28s %s\n", it.Label, it.Value)
		}
	}

	if len(p.HealthFiles) > 0 {
		fmt.Fprintln(w)
		heading.Fprintf(w, "Health files\n")
		for _, f := range p.HealthFiles {
			mark := color.RedString("missing")
			if f.Present {
				mark = color.GreenString("present")
			}
			fmt.Fprintf(w, "  %-28s %s\n", f.Name, mark)
		}
	}

	for _, chart := range p.Charts {
		fmt.Fprintln(w)
		heading.Fprintf(w, "%s\n", chart.Title)
		for i, label := range chart.Labels {
			bar := ""
			for n := 0; n < chart.Counts[i]; n++ {
				bar += "#"
				if len(bar) >= 40 {
					break
				}
			}
			fmt.Fprintf(w, "  %-6s %4d %s\n", label, chart.Counts[i], bar)
		}
	}
}
