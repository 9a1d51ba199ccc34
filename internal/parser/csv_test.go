package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/tripgenie/internal/doctree"
	"github.com/google/go-cmp/cmp"
)

func TestCSVParser_GroupsRowsByFirstColumn(t *testing.T) {
	input := "Day,Time,Activity,Cost\n" +
		"Day 1,09:00,Castle visit,15\n" +
		"Day 1,13:00,Lunch in Alfama,\n" +
		",18:00,Fado show,30\n" +
		"Day 2,10:00,Train to Sintra,5\n"

	tree, err := (&CSVParser{}).Parse(strings.NewReader(input), "itinerary.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &doctree.DocTree{
		Title: "itinerary",
		Children: []*doctree.DocNode{
			{Title: "Day 1", Text: "Time: 09:00, Activity: Castle visit, Cost: 15\n" +
				"Time: 13:00, Activity: Lunch in Alfama\n" +
				"Time: 18:00, Activity: Fado show, Cost: 30"},
			{Title: "Day 2", Text: "Time: 10:00, Activity: Train to Sintra, Cost: 5"},
		},
	}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVParser_RaggedRowsAndEmpty(t *testing.T) {
	tree, err := (&CSVParser{}).Parse(strings.NewReader(""), "empty.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 0 {
		t.Fatalf("expected no children, got %d", len(tree.Children))
	}

	tree, err = (&CSVParser{}).Parse(strings.NewReader("Day,Note\nDay 1,walk,extra\n"), "ragged.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tree.Children[0].Text; got != "Note: walk, extra" {
		t.Errorf("unexpected ragged row text %q", got)
	}
}
