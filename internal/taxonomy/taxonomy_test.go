package taxonomy

import "testing"

func TestClausesPriorityOrder(t *testing.T) {
	if len(Clauses) == 0 {
		t.Fatal("expected non-empty taxonomy")
	}
	for i, c := range Clauses {
		if c.Priority != i+1 {
			t.Fatalf("clause %q: expected priority %d, got %d", c.Name, i+1, c.Priority)
		}
		if c.Name == "" || c.Description == "" {
			t.Fatalf("clause at priority %d missing name or description", c.Priority)
		}
	}
}
