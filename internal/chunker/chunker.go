package chunker

import (
	"regexp"
	"unicode/utf8"
)

// Boundary selects where the chunker prefers to split text.
type Boundary string

const (
	// BoundaryNone splits at fixed byte positions only.
	BoundaryNone Boundary = "none"
	// BoundarySentence packs whole sentences into each chunk.
	BoundarySentence Boundary = "sentence"
	// BoundaryParagraph packs whole paragraphs into each chunk.
	BoundaryParagraph Boundary = "paragraph"
)

const (
	// DefaultMaxChunkSize is the default chunk size in bytes.
	DefaultMaxChunkSize = 2000

	// DefaultOverlap is the default overlap between adjacent chunks in bytes.
	DefaultOverlap = 200
)

// Policy configures how text is split into chunks.
type Policy struct {
	MaxChunkSize int
	Overlap      int
	Boundary     Boundary
}

// DefaultPolicy returns the paragraph-boundary policy used when a caller
// supplies none.
func DefaultPolicy() Policy {
	return Policy{
		MaxChunkSize: DefaultMaxChunkSize,
		Overlap:      DefaultOverlap,
		Boundary:     BoundaryParagraph,
	}
}

// normalized clamps a policy into a usable range without mutating the input.
func (p Policy) normalized() Policy {
	if p.MaxChunkSize <= 0 {
		p.MaxChunkSize = DefaultMaxChunkSize
	}
	if p.Overlap < 0 {
		p.Overlap = 0
	}
	// Overlap must leave room for forward progress
	if p.Overlap >= p.MaxChunkSize {
		p.Overlap = p.MaxChunkSize / 4
	}
	if p.Boundary == "" {
		p.Boundary = BoundaryParagraph
	}
	return p
}

// Span is one chunk of text plus its byte offset into the source document.
// Content is always a literal substring of the source: text[Offset:Offset+len(Content)].
type Span struct {
	Content string
	Offset  int
}

// Chunker splits text according to a fixed policy.
type Chunker struct {
	policy Policy
}

// New creates a Chunker with the given policy. Zero-value policy fields are
// replaced with defaults.
func New(policy Policy) *Chunker {
	return &Chunker{policy: policy.normalized()}
}

// Policy returns the effective (normalized) policy.
func (c *Chunker) Policy() Policy {
	return c.policy
}

var (
	paragraphSep = regexp.MustCompile(`\n[ \t]*\n+`)
	sentenceEnd  = regexp.MustCompile(`[.!?]+["')\]]*\s*`)
)

// Chunk splits text into ordered spans. Empty text yields no spans; spans are
// never empty.
func (c *Chunker) Chunk(text string) []Span {
	if text == "" {
		return nil
	}

	segs := segment(text, c.policy.Boundary)
	packed := pack(text, segs, c.policy.MaxChunkSize)
	return applyOverlap(text, packed, c.policy.Overlap)
}

// span is a half-open byte range [start, end) into the source text.
type span struct {
	start, end int
}

// segment divides the whole text into gapless boundary-aligned ranges.
// Separators stay attached to the preceding segment so the ranges cover the
// text exactly.
func segment(text string, boundary Boundary) []span {
	var sep *regexp.Regexp
	switch boundary {
	case BoundaryParagraph:
		sep = paragraphSep
	case BoundarySentence:
		sep = sentenceEnd
	default:
		return []span{{0, len(text)}}
	}

	var segs []span
	start := 0
	for _, loc := range sep.FindAllStringIndex(text, -1) {
		if loc[1] <= start {
			continue
		}
		segs = append(segs, span{start, loc[1]})
		start = loc[1]
	}
	if start < len(text) {
		segs = append(segs, span{start, len(text)})
	}
	if len(segs) == 0 {
		segs = []span{{0, len(text)}}
	}
	return segs
}

// runeStart walks i back to the nearest rune start so a cut at i never lands
// inside a multi-byte rune.
func runeStart(text string, i int) int {
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// pack greedily merges adjacent segments into spans of at most maxSize bytes.
// A single segment larger than maxSize is hard-split into pieces whose cut
// points land on rune starts. The output spans remain gapless and in order.
func pack(text string, segs []span, maxSize int) []span {
	out := make([]span, 0, len(segs))
	cur := span{-1, -1}

	flush := func() {
		if cur.start >= 0 {
			out = append(out, cur)
			cur = span{-1, -1}
		}
	}

	for _, seg := range segs {
		if seg.end-seg.start > maxSize {
			flush()
			for s := seg.start; s < seg.end; {
				e := s + maxSize
				if e >= seg.end {
					e = seg.end
				} else if snapped := runeStart(text, e); snapped > s {
					e = snapped
				}
				out = append(out, span{s, e})
				s = e
			}
			continue
		}
		switch {
		case cur.start < 0:
			cur = seg
		case cur.end-cur.start+seg.end-seg.start <= maxSize:
			cur.end = seg.end
		default:
			flush()
			cur = seg
		}
	}
	flush()
	return out
}

// applyOverlap extends each span after the first backwards by up to overlap
// bytes, keeping offsets strictly increasing and on rune starts.
func applyOverlap(text string, spans []span, overlap int) []Span {
	out := make([]Span, 0, len(spans))
	prevStart := -1
	for i, sp := range spans {
		start := sp.start
		if i > 0 && overlap > 0 {
			start -= overlap
			if start <= prevStart {
				start = prevStart + 1
			}
		}
		if start < 0 {
			start = 0
		}
		// Snap forward so the back-step never begins mid-rune; sp.start is
		// itself a rune start, so this terminates before undoing the overlap
		for start < sp.start && !utf8.RuneStart(text[start]) {
			start++
		}
		out = append(out, Span{Content: text[start:sp.end], Offset: start})
		prevStart = start
	}
	return out
}
