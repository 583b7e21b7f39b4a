// Package theme defines color themes for the GreenStudio TUI.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines the color roles used throughout the TUI.
type Theme struct {
	Name          string
	Light         bool           // light background; selects the light markdown style
	Background    lipgloss.Color // Main app background
	Surface       lipgloss.Color // Card/panel backgrounds
	SurfaceHover  lipgloss.Color // Highlighted surface (active tab, selected row)
	SurfaceBright lipgloss.Color // Extra bright surface for emphasis
	Border        lipgloss.Color // Subtle borders
	BorderBright  lipgloss.Color // Prominent borders (cards, focus)
	BorderAccent  lipgloss.Color // Accent-colored borders for focus states
	TextDim       lipgloss.Color // Lowest contrast text (hints, disabled)
	TextMuted     lipgloss.Color // Secondary text (labels, metadata)
	TextPrimary   lipgloss.Color // Primary content text
	Accent        lipgloss.Color // Primary accent (links, active states)
	AccentBright  lipgloss.Color // Brighter accent for emphasis
	AccentDim     lipgloss.Color // Dimmed accent for backgrounds
	Green         lipgloss.Color
	GreenBright   lipgloss.Color
	Orange        lipgloss.Color
	Red           lipgloss.Color
	Blue          lipgloss.Color
	BlueBright    lipgloss.Color
	Yellow        lipgloss.Color
	Magenta       lipgloss.Color
	Cyan          lipgloss.Color
}

// Active is the currently selected theme.
var Active = GreenStudioDark

// GreenStudioDark is the default theme: forest surfaces with an emerald accent.
var GreenStudioDark = Theme{
	Name:          "greenstudio-dark",
	Background:    lipgloss.Color("#0B1210"),
	Surface:       lipgloss.Color("#121C19"),
	SurfaceHover:  lipgloss.Color("#1B2A25"),
	SurfaceBright: lipgloss.Color("#243831"),
	Border:        lipgloss.Color("#2E463E"),
	BorderBright:  lipgloss.Color("#4A6B60"),
	BorderAccent:  lipgloss.Color("#10B981"),
	TextDim:       lipgloss.Color("#4A6B60"),
	TextMuted:     lipgloss.Color("#8BA89D"),
	TextPrimary:   lipgloss.Color("#ECFDF5"),
	Accent:        lipgloss.Color("#10B981"),
	AccentBright:  lipgloss.Color("#34D399"),
	AccentDim:     lipgloss.Color("#064E3B"),
	Green:         lipgloss.Color("#22C55E"),
	GreenBright:   lipgloss.Color("#4ADE80"),
	Orange:        lipgloss.Color("#F59E0B"),
	Red:           lipgloss.Color("#EF4444"),
	Blue:          lipgloss.Color("#38BDF8"),
	BlueBright:    lipgloss.Color("#7DD3FC"),
	Yellow:        lipgloss.Color("#FACC15"),
	Magenta:       lipgloss.Color("#E879F9"),
	Cyan:          lipgloss.Color("#2DD4BF"),
}

// FlexokiDark is a warm, paper-inspired dark theme.
var FlexokiDark = Theme{
	Name:          "flexoki-dark",
	Background:    lipgloss.Color("#100F0F"),
	Surface:       lipgloss.Color("#1C1B1A"),
	SurfaceHover:  lipgloss.Color("#282726"),
	SurfaceBright: lipgloss.Color("#343331"),
	Border:        lipgloss.Color("#403E3C"),
	BorderBright:  lipgloss.Color("#575653"),
	BorderAccent:  lipgloss.Color("#3AA99F"),
	TextDim:       lipgloss.Color("#575653"),
	TextMuted:     lipgloss.Color("#878580"),
	TextPrimary:   lipgloss.Color("#FFFCF0"),
	Accent:        lipgloss.Color("#3AA99F"),
	AccentBright:  lipgloss.Color("#5BC8BE"),
	AccentDim:     lipgloss.Color("#1A3533"),
	Green:         lipgloss.Color("#879A39"),
	GreenBright:   lipgloss.Color("#A3B859"),
	Orange:        lipgloss.Color("#DA702C"),
	Red:           lipgloss.Color("#D14D41"),
	Blue:          lipgloss.Color("#4385BE"),
	BlueBright:    lipgloss.Color("#6BA3D6"),
	Yellow:        lipgloss.Color("#D0A215"),
	Magenta:       lipgloss.Color("#CE5D97"),
	Cyan:          lipgloss.Color("#24837B"),
}

// GreenStudioLight is the daylight variant: paper surfaces, deep green accent.
var GreenStudioLight = Theme{
	Name:          "greenstudio-light",
	Light:         true,
	Background:    lipgloss.Color("#F7FBF8"),
	Surface:       lipgloss.Color("#EDF5F0"),
	SurfaceHover:  lipgloss.Color("#DCEBE2"),
	SurfaceBright: lipgloss.Color("#C9E0D3"),
	Border:        lipgloss.Color("#B7CFC2"),
	BorderBright:  lipgloss.Color("#8FB3A1"),
	BorderAccent:  lipgloss.Color("#047857"),
	TextDim:       lipgloss.Color("#8FA89B"),
	TextMuted:     lipgloss.Color("#5B7468"),
	TextPrimary:   lipgloss.Color("#0F1F18"),
	Accent:        lipgloss.Color("#047857"),
	AccentBright:  lipgloss.Color("#059669"),
	AccentDim:     lipgloss.Color("#D1FAE5"),
	Green:         lipgloss.Color("#15803D"),
	GreenBright:   lipgloss.Color("#16A34A"),
	Orange:        lipgloss.Color("#C2410C"),
	Red:           lipgloss.Color("#B91C1C"),
	Blue:          lipgloss.Color("#0369A1"),
	BlueBright:    lipgloss.Color("#0284C7"),
	Yellow:        lipgloss.Color("#A16207"),
	Magenta:       lipgloss.Color("#A21CAF"),
	Cyan:          lipgloss.Color("#0F766E"),
}

// TokyoNight is a cool blue/purple theme inspired by Tokyo city lights.
var TokyoNight = Theme{
	Name:          "tokyo-night",
	Background:    lipgloss.Color("#1A1B26"),
	Surface:       lipgloss.Color("#24283B"),
	SurfaceHover:  lipgloss.Color("#343A52"),
	SurfaceBright: lipgloss.Color("#414868"),
	Border:        lipgloss.Color("#565F89"),
	BorderBright:  lipgloss.Color("#7982A9"),
	BorderAccent:  lipgloss.Color("#7AA2F7"),
	TextDim:       lipgloss.Color("#565F89"),
	TextMuted:     lipgloss.Color("#A9B1D6"),
	TextPrimary:   lipgloss.Color("#C0CAF5"),
	Accent:        lipgloss.Color("#7AA2F7"),
	AccentBright:  lipgloss.Color("#A9C1FF"),
	AccentDim:     lipgloss.Color("#252B3F"),
	Green:         lipgloss.Color("#9ECE6A"),
	GreenBright:   lipgloss.Color("#B9E87A"),
	Orange:        lipgloss.Color("#FF9E64"),
	Red:           lipgloss.Color("#F7768E"),
	Blue:          lipgloss.Color("#7AA2F7"),
	BlueBright:    lipgloss.Color("#A9C1FF"),
	Yellow:        lipgloss.Color("#E0AF68"),
	Magenta:       lipgloss.Color("#BB9AF7"),
	Cyan:          lipgloss.Color("#7DCFFF"),
}

// Terminal uses ANSI 16 colors only - maximum compatibility.
var Terminal = Theme{
	Name:          "terminal",
	Background:    lipgloss.Color("0"),
	Surface:       lipgloss.Color("0"),
	SurfaceHover:  lipgloss.Color("8"),
	SurfaceBright: lipgloss.Color("8"),
	Border:        lipgloss.Color("8"),
	BorderBright:  lipgloss.Color("7"),
	BorderAccent:  lipgloss.Color("6"),
	TextDim:       lipgloss.Color("8"),
	TextMuted:     lipgloss.Color("7"),
	TextPrimary:   lipgloss.Color("15"),
	Accent:        lipgloss.Color("6"),
	AccentBright:  lipgloss.Color("14"),
	AccentDim:     lipgloss.Color("0"),
	Green:         lipgloss.Color("2"),
	GreenBright:   lipgloss.Color("10"),
	Orange:        lipgloss.Color("3"),
	Red:           lipgloss.Color("1"),
	Blue:          lipgloss.Color("4"),
	BlueBright:    lipgloss.Color("12"),
	Yellow:        lipgloss.Color("3"),
	Magenta:       lipgloss.Color("5"),
	Cyan:          lipgloss.Color("6"),
}

// All available themes.
var All = []Theme{GreenStudioDark, GreenStudioLight, FlexokiDark, TokyoNight, Terminal}

// ByName returns a theme by its name, defaulting to GreenStudioDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return GreenStudioDark
}

// Names lists the available theme names in display order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// MarkdownStyle is the glamour style matching t.
func (t Theme) MarkdownStyle() string {
	if t.Light {
		return "light"
	}
	return "dark"
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}
