package ux

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/grievance/internal/platform"
)

// Badge is the visual marker for a duplicate status
type Badge struct {
	Icon  string
	Label string
	Color lipgloss.Color
}

var badges = map[platform.DuplicateStatus]Badge{
	platform.StatusUnique:        {Icon: "✓", Label: "UNIQUE", Color: lipgloss.Color("46")},
	platform.StatusNearDuplicate: {Icon: "⚠", Label: "NEAR_DUPLICATE", Color: lipgloss.Color("226")},
	platform.StatusDuplicate:     {Icon: "✗", Label: "DUPLICATE", Color: lipgloss.Color("196")},
}

// BadgeFor returns the badge of a status. Statuses the client does not know
// are shown verbatim with a grey question mark.
func BadgeFor(status platform.DuplicateStatus) Badge {
	if b, ok := badges[status]; ok {
		return b
	}
	label := string(status)
	if label == "" {
		label = "UNKNOWN"
	}
	return Badge{Icon: "?", Label: label, Color: lipgloss.Color("241")}
}

// String renders the badge without color
func (b Badge) String() string {
	return b.Icon + " " + b.Label
}

// Render renders the badge, colored unless noColor is set
func (b Badge) Render(noColor bool) string {
	if noColor {
		return b.String()
	}
	return lipgloss.NewStyle().Foreground(b.Color).Render(b.String())
}
