package hotkey

import "testing"

func TestLookupBinding(t *testing.T) {
	for _, name := range []string{"ctrl_r", "ctrl_l", "alt_r", "alt_l", "shift_r", "shift_l"} {
		if _, err := lookupBinding(name); err != nil {
			t.Errorf("lookupBinding(%q): %v", name, err)
		}
	}

	if _, err := lookupBinding("meta_l"); err == nil {
		t.Error("expected error for unknown hotkey name")
	}
}

func TestEdgeString(t *testing.T) {
	if Pressed.String() != "pressed" || Released.String() != "released" {
		t.Errorf("unexpected edge strings: %s, %s", Pressed, Released)
	}
}

func TestDeliverDropsStaleEdges(t *testing.T) {
	l := &Listener{edges: make(chan Edge, 2)}

	l.deliver(Pressed)
	l.deliver(Released)
	l.deliver(Pressed)
	l.deliver(Released)

	// Buffer holds two; the most recent edge must be among them.
	var last Edge
	for i := 0; i < 2; i++ {
		last = <-l.edges
	}
	if last != Released {
		t.Errorf("last buffered edge = %v, want Released", last)
	}
}
