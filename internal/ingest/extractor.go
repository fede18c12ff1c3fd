package ingest

import "strings"

// ExtractorConfig configures an Extractor.
type ExtractorConfig struct {
	OpenTag        string
	CloseTag       string
	Field          string // delta field the extracted value belongs to, e.g. "thought"
	IncludeMarkers bool   // wrap the extracted value with the literal tags
}

// Extraction is the result of processing one chunk. Empty strings mean
// "no value", never "empty value".
type Extraction struct {
	Content string
	Value   string
}

// Extractor splits inline tag-delimited blocks out of a running text
// stream. Tags may be split across arbitrarily many chunks; a suspected
// partial tag at the end of the buffer is held back until more input
// arrives.
//
// Not safe for concurrent use. One extractor per session stream.
type Extractor struct {
	cfg     ExtractorConfig
	buffer  strings.Builder
	pending strings.Builder // in-block text awaiting the close tag when markers are kept
	inBlock bool
}

// NewThinkingExtractor returns an extractor for <thinking> blocks, the
// form emitted inline by agent CLIs.
func NewThinkingExtractor() *Extractor {
	return NewExtractor(ExtractorConfig{
		OpenTag:  "<thinking>",
		CloseTag: "</thinking>",
		Field:    "thought",
	})
}

func NewExtractor(cfg ExtractorConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Field reports which delta field extracted values belong to.
func (e *Extractor) Field() string { return e.cfg.Field }

// Process consumes one chunk and returns whatever content and extracted
// value became unambiguous. Newlines inside tagged blocks are preserved
// verbatim.
func (e *Extractor) Process(chunk string) Extraction {
	e.buffer.WriteString(chunk)
	buf := e.buffer.String()
	e.buffer.Reset()

	var content, value strings.Builder

	for len(buf) > 0 {
		if !e.inBlock {
			idx := strings.Index(buf, e.cfg.OpenTag)
			if idx >= 0 {
				content.WriteString(buf[:idx])
				e.inBlock = true
				buf = buf[idx+len(e.cfg.OpenTag):]
				continue
			}
			held := holdback(buf, e.cfg.OpenTag)
			content.WriteString(buf[:len(buf)-len(held)])
			e.buffer.WriteString(held)
			buf = ""
		} else {
			idx := strings.Index(buf, e.cfg.CloseTag)
			if idx >= 0 {
				if e.cfg.IncludeMarkers {
					// Tags wrap a block exactly once, at close, no matter
					// how the input was chunked.
					value.WriteString(e.cfg.OpenTag)
					value.WriteString(e.pending.String())
					value.WriteString(buf[:idx])
					value.WriteString(e.cfg.CloseTag)
					e.pending.Reset()
				} else {
					value.WriteString(buf[:idx])
				}
				e.inBlock = false
				buf = buf[idx+len(e.cfg.CloseTag):]
				continue
			}
			held := holdback(buf, e.cfg.CloseTag)
			if e.cfg.IncludeMarkers {
				e.pending.WriteString(buf[:len(buf)-len(held)])
			} else {
				value.WriteString(buf[:len(buf)-len(held)])
			}
			e.buffer.WriteString(held)
			buf = ""
		}
	}

	out := Extraction{Content: content.String()}
	if v := value.String(); v != "" {
		out.Value = v
	}
	return out
}

// Reset clears the buffer and block state for reuse across unrelated
// streams. Per-session instances are still preferred to avoid cross-talk.
func (e *Extractor) Reset() {
	e.buffer.Reset()
	e.pending.Reset()
	e.inBlock = false
}

// holdback returns the longest suffix of buf that is a proper prefix of
// tag. That suffix may be the start of a tag split across chunks, so it
// must not be emitted yet.
func holdback(buf, tag string) string {
	max := len(tag) - 1
	if max > len(buf) {
		max = len(buf)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(buf, tag[:n]) {
			return buf[len(buf)-n:]
		}
	}
	return ""
}
