package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/fanout/internal/config"
	"github.com/bamsammich/fanout/internal/stats"
)

// Default colors (Catppuccin Mocha).
const (
	defaultOK    = "#a6e3a1"
	defaultFail  = "#f38ba8"
	defaultMuted = "#5a6278"
)

// Theme styles the completion summary.
type Theme struct {
	OK    lipgloss.Style
	Fail  lipgloss.Style
	Muted lipgloss.Style
}

// NewTheme builds a Theme, applying overrides from the config file.
func NewTheme(cfg config.ThemeConfig) Theme {
	pick := func(override *string, def string) lipgloss.Color {
		if override != nil && *override != "" {
			return lipgloss.Color(*override)
		}
		return lipgloss.Color(def)
	}
	return Theme{
		OK:    lipgloss.NewStyle().Bold(true).Foreground(pick(cfg.OK, defaultOK)),
		Fail:  lipgloss.NewStyle().Bold(true).Foreground(pick(cfg.Fail, defaultFail)),
		Muted: lipgloss.NewStyle().Foreground(pick(cfg.Muted, defaultMuted)),
	}
}

// CompletionSummary builds the final summary line from a snapshot.
// Format: done ✓  files 3  size 1.2 GiB  avg 641 MB/s  time 3s  verified 6  errors 0
func CompletionSummary(snap stats.Snapshot, theme Theme) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesCopied) / snap.Elapsed.Seconds()
	}

	errCount := snap.FilesFailed + snap.FilesVerifyFailed
	icon := theme.OK.Render("✓")
	if errCount > 0 {
		icon = theme.Fail.Render("✗")
	}

	base := fmt.Sprintf("done %s  files %s  size %s  avg %s  time %s",
		icon,
		FormatCount(snap.FilesCopied),
		FormatBytes(snap.BytesCopied),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
	)

	if snap.FilesVerified > 0 || snap.FilesVerifyFailed > 0 {
		base += fmt.Sprintf("  verified %s", FormatCount(snap.FilesVerified))
	}
	if snap.CacheHits > 0 {
		base += theme.Muted.Render(fmt.Sprintf("  cached %s", FormatCount(snap.CacheHits)))
	}

	errs := fmt.Sprintf("  errors %d", errCount)
	if errCount > 0 {
		errs = theme.Fail.Render(errs)
	}
	return base + errs
}
