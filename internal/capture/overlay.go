package capture

import (
	"fmt"
	"strings"
	"time"
)

// Render expands the overlay template's placeholders for one frame tick.
// {order} and {employee} are fixed for the session; {time} and {elapsed}
// are recomputed against now.
func (s *OverlaySpec) Render(now time.Time) string {
	if s == nil {
		return ""
	}
	template := s.Template
	if strings.TrimSpace(template) == "" {
		template = "{order} | {employee} | {time} | {elapsed}"
	}
	replacer := strings.NewReplacer(
		"{order}", s.Order,
		"{employee}", s.Employee,
		"{time}", now.Format("15:04:05"),
		"{elapsed}", formatElapsed(now.Sub(s.StartedAt)),
	)
	return replacer.Replace(template)
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	minutes := total / 60
	seconds := total % 60
	if minutes >= 60 {
		return fmt.Sprintf("%d:%02d:%02d", minutes/60, minutes%60, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
