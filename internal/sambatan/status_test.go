package sambatan

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusOpen, StatusClosed},
		{StatusOpen, StatusCancelled},
		{StatusClosed, StatusCompleted},
		{StatusClosed, StatusCancelled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	statuses := []Status{StatusOpen, StatusClosed, StatusCompleted, StatusCancelled}
	allowedSet := map[[2]Status]bool{}
	for _, tc := range allowed {
		allowedSet[[2]Status{tc.from, tc.to}] = true
	}
	for _, from := range statuses {
		for _, to := range statuses {
			if allowedSet[[2]Status{from, to}] {
				continue
			}
			if CanTransition(from, to) {
				t.Errorf("expected %s -> %s to be rejected", from, to)
			}
		}
	}
}

func TestTerminal(t *testing.T) {
	if StatusOpen.Terminal() || StatusClosed.Terminal() {
		t.Fatal("OPEN and CLOSED are not terminal")
	}
	if !StatusCompleted.Terminal() || !StatusCancelled.Terminal() {
		t.Fatal("COMPLETED and CANCELLED are terminal")
	}
}
