// Package richtext holds styled text: a plain string plus style spans whose
// offsets are measured in UTF-16 code units.
package richtext

import (
	"cmp"
	"slices"
	"unicode/utf16"
)

type StyleKind uint8

const (
	Bold StyleKind = iota
	Italic
	Underline
)

// Kinds lists every style in markup nesting order.
var Kinds = [...]StyleKind{Bold, Italic, Underline}

// Code returns the short snapshot code for the kind.
func (k StyleKind) Code() string {
	switch k {
	case Bold:
		return "b"
	case Italic:
		return "i"
	case Underline:
		return "u"
	}
	return ""
}

func (k StyleKind) String() string {
	switch k {
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case Underline:
		return "underline"
	}
	return "unknown"
}

// ParseStyleKind accepts either the short code ("b") or the long name ("bold").
func ParseStyleKind(s string) (StyleKind, bool) {
	switch s {
	case "b", "bold":
		return Bold, true
	case "i", "italic":
		return Italic, true
	case "u", "underline":
		return Underline, true
	}
	return 0, false
}

// StyleSet is a bit set of StyleKind values.
type StyleSet uint8

func (s StyleSet) Has(k StyleKind) bool         { return s&(1<<k) != 0 }
func (s StyleSet) With(k StyleKind) StyleSet    { return s | 1<<k }
func (s StyleSet) Without(k StyleKind) StyleSet { return s &^ (1 << k) }

type Span struct {
	Kind  StyleKind `json:"kind"`
	Start int       `json:"start"`
	End   int       `json:"end"`
}

// Range is a half-open [Start, End) interval in UTF-16 code units.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Text is a value type. Spans are kept normalized: sorted by kind then start,
// with overlapping and touching spans of the same kind merged.
type Text struct {
	Content string `json:"content"`
	Spans   []Span `json:"spans,omitempty"`
}

// Plain returns unstyled text.
func Plain(s string) Text {
	return Text{Content: s}
}

// Len returns the content length in UTF-16 code units.
func (t Text) Len() int {
	return utf16Len(t.Content)
}

func (t Text) Clone() Text {
	return Text{Content: t.Content, Spans: slices.Clone(t.Spans)}
}

// Covered reports whether a single span of kind contains the whole range.
func (t Text) Covered(kind StyleKind, r Range) bool {
	for _, s := range t.Spans {
		if s.Kind == kind && s.Start <= r.Start && r.End <= s.End {
			return true
		}
	}
	return false
}

// Toggle removes kind from r when r is already covered by one span of that
// kind, and applies it to r otherwise. An empty, inverted or out-of-bounds
// range leaves the text unchanged, as does one whose ends fall inside a
// surrogate pair.
func (t Text) Toggle(kind StyleKind, r Range) Text {
	units := utf16.Encode([]rune(t.Content))
	if r.Start < 0 || r.End <= r.Start || r.End > len(units) {
		return t
	}
	if insidePair(units, r.Start) || insidePair(units, r.End) {
		return t
	}
	out := Text{Content: t.Content}
	if !t.Covered(kind, r) {
		out.Spans = append(slices.Clone(t.Spans), Span{Kind: kind, Start: r.Start, End: r.End})
		return out.Normalize()
	}
	for _, s := range t.Spans {
		if s.Kind != kind || s.End <= r.Start || s.Start >= r.End {
			out.Spans = append(out.Spans, s)
			continue
		}
		if s.Start < r.Start {
			out.Spans = append(out.Spans, Span{Kind: kind, Start: s.Start, End: r.Start})
		}
		if s.End > r.End {
			out.Spans = append(out.Spans, Span{Kind: kind, Start: r.End, End: s.End})
		}
	}
	return out.Normalize()
}

// Normalize clamps spans to the content, widens ends that fall inside a
// surrogate pair to cover the whole character, drops empty spans and merges
// overlapping or touching spans of the same kind.
func (t Text) Normalize() Text {
	units := utf16.Encode([]rune(t.Content))
	n := len(units)
	spans := make([]Span, 0, len(t.Spans))
	for _, s := range t.Spans {
		s.Start = max(s.Start, 0)
		s.End = min(s.End, n)
		if insidePair(units, s.Start) {
			s.Start--
		}
		if insidePair(units, s.End) {
			s.End++
		}
		if s.Start < s.End && s.Kind <= Underline {
			spans = append(spans, s)
		}
	}
	slices.SortFunc(spans, func(a, b Span) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Start, b.Start)
	})

	var merged []Span
	for _, s := range spans {
		if last := len(merged) - 1; last >= 0 && merged[last].Kind == s.Kind && s.Start <= merged[last].End {
			merged[last].End = max(merged[last].End, s.End)
			continue
		}
		merged = append(merged, s)
	}
	return Text{Content: t.Content, Spans: merged}
}

// Segment is a maximal run of content sharing one style set.
type Segment struct {
	Text   string
	Start  int
	End    int
	Styles StyleSet
}

// Segments splits the content at every span boundary. Spans are normalized
// first so no segment starts or ends inside a surrogate pair.
func (t Text) Segments() []Segment {
	t = t.Normalize()
	units := utf16.Encode([]rune(t.Content))
	if len(units) == 0 {
		return nil
	}
	cuts := []int{0, len(units)}
	for _, s := range t.Spans {
		cuts = append(cuts, s.Start, s.End)
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	var segs []Segment
	for i := 0; i+1 < len(cuts); i++ {
		a, b := cuts[i], cuts[i+1]
		if a < 0 || b > len(units) || a >= b {
			continue
		}
		var set StyleSet
		for _, s := range t.Spans {
			if s.Start <= a && b <= s.End {
				set = set.With(s.Kind)
			}
		}
		segs = append(segs, Segment{
			Text:   string(utf16.Decode(units[a:b])),
			Start:  a,
			End:    b,
			Styles: set,
		})
	}
	return segs
}

// insidePair reports whether off falls between the two halves of a
// surrogate pair.
func insidePair(units []uint16, off int) bool {
	if off <= 0 || off >= len(units) {
		return false
	}
	hi, lo := units[off-1], units[off]
	return 0xD800 <= hi && hi < 0xDC00 && 0xDC00 <= lo && lo < 0xE000
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
