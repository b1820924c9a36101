package main

import (
	"strings"
	"testing"
)

func TestRenderTableRightAlignsNumericColumns(t *testing.T) {
	out := renderTable(
		[]string{"Job", "Cues"},
		[][]string{
			{"abcdwxyz", "2"},
			{"efghstuv", "117"},
		},
		2,
	)

	for _, want := range []string{"Job", "Cues", "abcdwxyz", "117"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}

	// Right alignment puts both values against the column's right edge.
	var short, long string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "abcdwxyz") {
			short = line
		}
		if strings.Contains(line, "efghstuv") {
			long = line
		}
	}
	if strings.Index(short, "2") != strings.Index(long, "117")+2 {
		t.Fatalf("cue column not right aligned:\n%s", out)
	}
}
