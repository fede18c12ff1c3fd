package ingest

import (
	"strings"
	"testing"
)

// feed pushes input through the extractor in the given chunk sizes and
// concatenates the results.
func feed(t *testing.T, e *Extractor, input string, chunkSize int) (string, string) {
	t.Helper()
	var content, value strings.Builder
	for i := 0; i < len(input); i += chunkSize {
		end := i + chunkSize
		if end > len(input) {
			end = len(input)
		}
		out := e.Process(input[i:end])
		content.WriteString(out.Content)
		value.WriteString(out.Value)
	}
	return content.String(), value.String()
}

func TestExtractor_BasicExtraction(t *testing.T) {
	e := NewThinkingExtractor()
	out := e.Process("Hello <thinking>I need to process this</thinking> world")

	if out.Content != "Hello  world" {
		t.Errorf("content = %q, want %q", out.Content, "Hello  world")
	}
	if out.Value != "I need to process this" {
		t.Errorf("value = %q, want %q", out.Value, "I need to process this")
	}
}

func TestExtractor_SplitInvariance(t *testing.T) {
	input := "Hello <thinking>I need to process this</thinking> world"

	whole := NewThinkingExtractor().Process(input)

	for chunkSize := 1; chunkSize <= len(input); chunkSize++ {
		e := NewThinkingExtractor()
		content, value := feed(t, e, input, chunkSize)

		if content != whole.Content {
			t.Errorf("chunk size %d: content = %q, want %q", chunkSize, content, whole.Content)
		}
		if value != whole.Value {
			t.Errorf("chunk size %d: value = %q, want %q", chunkSize, value, whole.Value)
		}
	}
}

func TestExtractor_TagSplitOneCharAtATime(t *testing.T) {
	e := NewThinkingExtractor()
	content, value := feed(t, e, "a<thinking>b</thinking>c", 1)

	if content != "ac" {
		t.Errorf("content = %q, want %q", content, "ac")
	}
	if value != "b" {
		t.Errorf("value = %q, want %q", value, "b")
	}
}

func TestExtractor_OnlyTaggedBlock(t *testing.T) {
	e := NewThinkingExtractor()
	out := e.Process("<thinking>just a thought</thinking>")

	if out.Content != "" {
		t.Errorf("content = %q, want absent", out.Content)
	}
	if out.Value != "just a thought" {
		t.Errorf("value = %q, want %q", out.Value, "just a thought")
	}
}

func TestExtractor_MultipleBlocksInOneChunk(t *testing.T) {
	e := NewThinkingExtractor()
	out := e.Process("a<thinking>x</thinking>b<thinking>y</thinking>c")

	if out.Content != "abc" {
		t.Errorf("content = %q, want %q", out.Content, "abc")
	}
	if out.Value != "xy" {
		t.Errorf("value = %q, want %q", out.Value, "xy")
	}
}

func TestExtractor_NewlinesPreserved(t *testing.T) {
	e := NewThinkingExtractor()
	out := e.Process("<thinking>line one\nline two\n</thinking>")

	if out.Value != "line one\nline two\n" {
		t.Errorf("value = %q, newlines not preserved", out.Value)
	}
}

func TestExtractor_PartialTagHeldBack(t *testing.T) {
	e := NewThinkingExtractor()

	// "<thin" could be the start of a tag; it must not be emitted yet.
	out := e.Process("Hello <thin")
	if out.Content != "Hello " {
		t.Errorf("content = %q, want %q", out.Content, "Hello ")
	}

	// Turns out it was not a tag after all.
	out = e.Process("g done")
	if out.Content != "<thing done" {
		t.Errorf("content = %q, want %q", out.Content, "<thing done")
	}
}

func TestExtractor_IncludeMarkers(t *testing.T) {
	e := NewExtractor(ExtractorConfig{
		OpenTag:        "<thinking>",
		CloseTag:       "</thinking>",
		Field:          "thought",
		IncludeMarkers: true,
	})
	out := e.Process("<thinking>inner</thinking>")

	if out.Value != "<thinking>inner</thinking>" {
		t.Errorf("value = %q, want markers included", out.Value)
	}
}

func TestExtractor_IncludeMarkersSplitInvariance(t *testing.T) {
	input := "a<thinking>first</thinking>b<thinking>second</thinking>c"

	newMarked := func() *Extractor {
		return NewExtractor(ExtractorConfig{
			OpenTag:        "<thinking>",
			CloseTag:       "</thinking>",
			Field:          "thought",
			IncludeMarkers: true,
		})
	}

	whole := newMarked().Process(input)
	wantValue := "<thinking>first</thinking><thinking>second</thinking>"
	if whole.Value != wantValue {
		t.Fatalf("value = %q, want %q", whole.Value, wantValue)
	}

	for chunkSize := 1; chunkSize <= len(input); chunkSize++ {
		content, value := feed(t, newMarked(), input, chunkSize)

		if content != whole.Content {
			t.Errorf("chunk size %d: content = %q, want %q", chunkSize, content, whole.Content)
		}
		if value != whole.Value {
			t.Errorf("chunk size %d: value = %q, want %q", chunkSize, value, whole.Value)
		}
	}
}

func TestExtractor_Reset(t *testing.T) {
	e := NewThinkingExtractor()
	e.Process("dangling <thinking>unclosed")
	e.Reset()

	fresh := NewThinkingExtractor()
	input := "clean <thinking>slate</thinking> run"

	got := e.Process(input)
	want := fresh.Process(input)

	if got != want {
		t.Errorf("after Reset: got %+v, want %+v", got, want)
	}
}
