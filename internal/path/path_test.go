package path

import "testing"

func TestRenderColumn(t *testing.T) {
	p := New()
	p.Push(Segment{Kind: Column, Name: "slug"})
	got := p.Render(RenderOptions{})
	want := "cards.slug"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderJSONDescent(t *testing.T) {
	p := New()
	p.Push(Segment{Kind: Column, Name: "data"})
	p.Push(Segment{Kind: JSONProperty, Name: "foo"})
	p.Push(Segment{Kind: JSONProperty, Name: "bar"})

	got := p.Render(RenderOptions{Cast: CastText})
	want := `(cards.data #>> '{foo,bar}')::text`
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderJSONPropertyInjectionSafe(t *testing.T) {
	p := New()
	p.Push(Segment{Kind: Column, Name: "data"})
	p.Push(Segment{Kind: JSONProperty, Name: `a'); DROP TABLE cards; --`})

	got := p.Render(RenderOptions{})
	// The malicious single quote must be doubled, never closing the
	// enclosing SQL string literal early.
	want := `cards.data #>> '{"a''); DROP TABLE cards; --"}'`
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderSubColumnIndex(t *testing.T) {
	p := New()
	p.Push(Segment{Kind: Column, Name: "requires"})
	p.Push(Segment{Kind: SubColumn, Index: 0})

	got := p.Render(RenderOptions{})
	want := "cards.requires[1]"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderJSONIndexZeroBased(t *testing.T) {
	p := New()
	p.Push(Segment{Kind: Column, Name: "data"})
	p.Push(Segment{Kind: JSONProperty, Name: "mirrors"})
	p.Push(Segment{Kind: JSONIndex, Index: 0})

	got := p.Render(RenderOptions{})
	want := `cards.data #>> '{mirrors,0}'`
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderAlias(t *testing.T) {
	p := New()
	p.Push(Segment{Kind: Column, Name: "slug"})

	got := p.Render(RenderOptions{Alias: "linked_1"})
	want := "linked_1.slug"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestFlattenedIsIndependent(t *testing.T) {
	p := New()
	p.Push(Segment{Kind: Column, Name: "data"})
	snap := p.Flattened()
	p.Push(Segment{Kind: JSONProperty, Name: "x"})

	if snap.Len() != 1 {
		t.Fatalf("Flattened snapshot mutated by later pushes: len=%d", snap.Len())
	}
	if p.Len() != 2 {
		t.Fatalf("original path not mutated: len=%d", p.Len())
	}
}
