package pool

import "testing"

type widget struct {
	name string
	tags map[string]string
}

func TestPool_ResetOnPut(t *testing.T) {
	p := New(
		func() *widget {
			return &widget{tags: make(map[string]string)}
		},
		func(w *widget) {
			w.name = ""
			for k := range w.tags {
				delete(w.tags, k)
			}
		},
	)

	w := p.Get()
	w.name = "dirty"
	w.tags["a"] = "b"
	p.Put(w)

	reused := p.Get()
	if reused.name != "" {
		t.Errorf("expected name reset, got %q", reused.name)
	}
	if len(reused.tags) != 0 {
		t.Errorf("expected tags cleared, got %v", reused.tags)
	}
}

func TestPool_NilPutIgnored(t *testing.T) {
	p := New(func() *widget { return &widget{} }, nil)
	p.Put(nil)
	if w := p.Get(); w == nil {
		t.Fatal("expected a usable widget")
	}
}

func TestPool_Stats(t *testing.T) {
	p := New(func() *widget { return &widget{} }, nil)

	w := p.Get()
	p.Put(w)
	p.Get()

	stats := p.Stats()
	if stats.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses == 0 {
		t.Error("expected at least one allocation miss")
	}
}
