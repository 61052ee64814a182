// Package metrics derives per-operator monthly totals from the session log.
package metrics

import (
	"sort"
	"strings"
	"time"

	"packcam/internal/store"
)

// UnattributedEmployee groups sessions whose employee field is empty.
const UnattributedEmployee = "(none)"

// MonthlyTotal accumulates one operator's recordings for a month.
type MonthlyTotal struct {
	Employee   string
	Count      int
	DurationMS int64
}

// Monthly filters sessions whose start falls within the given month and
// groups them by employee. Pure function: no caching, recomputed per call.
func Monthly(sessions []store.Session, year int, month time.Month) []MonthlyTotal {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	totals := make(map[string]*MonthlyTotal)
	for _, session := range sessions {
		start := session.Start.UTC()
		if start.Before(monthStart) || !start.Before(nextMonth) {
			continue
		}
		employee := strings.TrimSpace(session.Employee)
		if employee == "" {
			employee = UnattributedEmployee
		}
		total, ok := totals[employee]
		if !ok {
			total = &MonthlyTotal{Employee: employee}
			totals[employee] = total
		}
		total.Count++
		total.DurationMS += session.DurationMS
	}

	result := make([]MonthlyTotal, 0, len(totals))
	for _, total := range totals {
		result = append(result, *total)
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Employee) < strings.ToLower(result[j].Employee)
	})
	return result
}
