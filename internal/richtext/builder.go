package richtext

import "strings"

// Builder accumulates styled runs and produces a normalized Text.
type Builder struct {
	sb    strings.Builder
	n     int
	spans []Span
}

// Append adds s carrying every style in set.
func (b *Builder) Append(s string, set StyleSet) {
	if s == "" {
		return
	}
	start := b.n
	b.sb.WriteString(s)
	b.n += utf16Len(s)
	for _, k := range Kinds {
		if set.Has(k) {
			b.spans = append(b.spans, Span{Kind: k, Start: start, End: b.n})
		}
	}
}

// Len returns the UTF-16 length written so far.
func (b *Builder) Len() int { return b.n }

func (b *Builder) Text() Text {
	return Text{Content: b.sb.String(), Spans: b.spans}.Normalize()
}
