package simulate

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mcdev12/fingerpicker/go/internal/picker/color"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	cardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func swatch(c color.RGB) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render("  ")
}

// Report writes a short human summary of res: one line per round with the
// winning color, then the final table state.
func Report(w io.Writer, res Result) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(res.Script))
	b.WriteString(faintStyle.Render(fmt.Sprintf("  seed %d, %s", res.Seed, res.Elapsed)))
	b.WriteString("\n")

	if len(res.Outcomes) == 0 {
		b.WriteString(faintStyle.Render("no round finished"))
		b.WriteString("\n")
	}
	for i, out := range res.Outcomes {
		winners := make([]string, 0, len(out.Winners))
		for _, id := range out.Winners {
			winners = append(winners, fmt.Sprintf("%d", id))
		}
		fmt.Fprintf(&b, "round %d  %-6s %s %s  winners %s\n",
			i+1, out.Mode.Key(), swatch(out.WinningColor), out.WinningColor.Hex(), strings.Join(winners, ","))
	}

	fmt.Fprintf(&b, "final %s, %d on screen, %d requests, tone %s",
		res.Final.State, len(res.Final.Contestants), len(res.Timeline), res.Tone.Duration())

	_, err := fmt.Fprintln(w, cardStyle.Render(b.String()))
	return err
}
