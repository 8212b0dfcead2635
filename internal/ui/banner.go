package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// Version is printed in the banner.
var Version = "v0.3.0"

// ══════════════════════════════════════════════════════════════════════════════
// ASCII ART BANNER
// ══════════════════════════════════════════════════════════════════════════════

var bannerRows = []string{
	"██████╗ ██╗      ██████╗  ██████╗ ███████╗███╗   ███╗██╗████████╗██╗  ██╗",
	"██╔══██╗██║     ██╔═══██╗██╔════╝ ██╔════╝████╗ ████║██║╚══██╔══╝██║  ██║",
	"██████╔╝██║     ██║   ██║██║  ███╗███████╗██╔████╔██║██║   ██║   ███████║",
	"██╔══██╗██║     ██║   ██║██║   ██║╚════██║██║╚██╔╝██║██║   ██║   ██╔══██║",
	"██████╔╝███████╗╚██████╔╝╚██████╔╝███████║██║ ╚═╝ ██║██║   ██║   ██║  ██║",
	"╚═════╝ ╚══════╝ ╚═════╝  ╚═════╝ ╚══════╝╚═╝     ╚═╝╚═╝   ╚═╝   ╚═╝  ╚═╝",
}

// PrintBanner displays the startup banner with the selected provider.
func (c *Console) PrintBanner(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)
	hiMagenta := color.New(color.FgHiMagenta)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)

	fmt.Fprintln(c.out)
	cyan.Fprintln(c.out, "╔═══════════════════════════════════════════════════════════════════════════╗")
	for i, row := range bannerRows {
		cyan.Fprint(c.out, "║ ")
		// Top half cyan, bottom half magenta.
		if i < len(bannerRows)/2 {
			neonBlue.Fprint(c.out, row)
		} else {
			magenta.Fprint(c.out, row)
		}
		cyan.Fprintln(c.out, " ║")
	}
	cyan.Fprintln(c.out, "╠═══════════════════════════════════════════════════════════════════════════╣")

	cyan.Fprint(c.out, "║  ")
	yellow.Fprint(c.out, "RESEARCH → WRITE → EDIT → LINT → SEO")
	mutedText.Fprint(c.out, "  │  ")
	hiMagenta.Fprint(c.out, provider)
	mutedText.Fprint(c.out, "  │  ")
	white.Fprintln(c.out, Version)
	cyan.Fprintln(c.out, "╚═══════════════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(c.out)
}

// PrintMiniBanner displays a one-box banner for narrow terminals.
func (c *Console) PrintMiniBanner(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(c.out)
	cyan.Fprintln(c.out, "╔══════════════════════════════════════╗")
	cyan.Fprint(c.out, "║  ")
	magenta.Fprint(c.out, "BLOGSMITH")
	yellow.Fprintf(c.out, " %s ", Version)
	mutedText.Fprint(c.out, provider)
	fmt.Fprintln(c.out)
	cyan.Fprintln(c.out, "╚══════════════════════════════════════╝")
	fmt.Fprintln(c.out)
}
