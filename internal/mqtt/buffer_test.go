package mqtt

import (
	"testing"
)

func msg(b byte) message {
	return message{topic: Topic, payload: []byte{b}}
}

func payloads(msgs []message) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestBacklogEmptyDrain(t *testing.T) {
	b := newBacklog(4)
	got, dropped := b.drain()
	if got != nil || dropped != 0 {
		t.Errorf("expected nothing, got %v (dropped %d)", got, dropped)
	}
}

func TestBacklogKeepsOrder(t *testing.T) {
	b := newBacklog(8)
	for i := byte(0); i < 5; i++ {
		if b.add(msg(i)) {
			t.Fatalf("unexpected drop at %d", i)
		}
	}
	if b.len() != 5 {
		t.Errorf("len: got %d, want 5", b.len())
	}

	got, dropped := b.drain()
	if string(payloads(got)) != string([]byte{0, 1, 2, 3, 4}) {
		t.Errorf("order: got %v", payloads(got))
	}
	if dropped != 0 {
		t.Errorf("dropped: got %d, want 0", dropped)
	}
	if b.len() != 0 {
		t.Errorf("backlog not empty after drain")
	}
}

func TestBacklogDropsOldestWhenFull(t *testing.T) {
	b := newBacklog(3)
	drops := 0
	for i := byte(0); i < 7; i++ {
		if b.add(msg(i)) {
			drops++
		}
	}
	if drops != 4 {
		t.Errorf("add reported %d drops, want 4", drops)
	}

	got, dropped := b.drain()
	if string(payloads(got)) != string([]byte{4, 5, 6}) {
		t.Errorf("kept: got %v, want [4 5 6]", payloads(got))
	}
	if dropped != 4 {
		t.Errorf("dropped: got %d, want 4", dropped)
	}

	// counters reset after drain
	_, dropped = b.drain()
	if dropped != 0 {
		t.Errorf("dropped after second drain: got %d", dropped)
	}
}

func TestBacklogReusableAfterDrain(t *testing.T) {
	b := newBacklog(3)
	for cycle := 0; cycle < 4; cycle++ {
		for i := byte(0); i < 2; i++ {
			b.add(msg(byte(cycle)*10 + i))
		}
		got, _ := b.drain()
		want := []byte{byte(cycle) * 10, byte(cycle)*10 + 1}
		if string(payloads(got)) != string(want) {
			t.Errorf("cycle %d: got %v, want %v", cycle, payloads(got), want)
		}
	}
}

func TestBacklogMinimumCapacity(t *testing.T) {
	b := newBacklog(0)
	b.add(msg(1))
	b.add(msg(2))
	got, dropped := b.drain()
	if len(got) != 1 || got[0].payload[0] != 2 || dropped != 1 {
		t.Errorf("got %v dropped %d", payloads(got), dropped)
	}
}
