package main

import (
	"strings"
	"testing"
)

func TestRenderTableFillsMissingCells(t *testing.T) {
	out := renderTable(
		[]column{{title: "Order"}, {title: "Operator"}, {title: "Duration", numeric: true}},
		[][]string{
			{"AB-1", "", "1m35s"},
			{"CD-2"},
		},
	)

	if !strings.Contains(out, "Order") || !strings.Contains(out, "Duration") {
		t.Fatalf("missing headers in output:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "AB-1") && !strings.Contains(line, " - ") {
			t.Fatalf("empty operator cell not rendered as placeholder:\n%s", out)
		}
		if strings.Contains(line, "CD-2") && strings.Count(line, " - ") < 2 {
			t.Fatalf("short row not padded with placeholders:\n%s", out)
		}
	}
}

func TestRenderTableWithoutColumnsIsEmpty(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestFormatDurationMS(t *testing.T) {
	cases := map[int64]string{
		0:       "0s",
		95000:   "1m35s",
		3723000: "1h2m3s",
		1499:    "1s",
	}
	for ms, want := range cases {
		if got := formatDurationMS(ms); got != want {
			t.Errorf("formatDurationMS(%d) = %q, want %q", ms, got, want)
		}
	}
}
