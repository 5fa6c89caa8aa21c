// Package codec converts documents to and from their two serialized forms:
// the durable HTML-like markup and the JSON snapshots kept by the history.
package codec

import (
	"strconv"
	"strings"

	"blockpad/internal/domain"
	"blockpad/internal/richtext"
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\r", "&#13;",
	"\n", "<br>",
)

// EscapeHTML escapes the five HTML special characters.
func EscapeHTML(s string) string {
	return attrEscaper.Replace(s)
}

var styleTags = [...]string{richtext.Bold: "b", richtext.Italic: "i", richtext.Underline: "u"}

// EncodeMarkup renders the durable markup for d. Block ids and cached video
// thumbnails are not part of the markup.
func EncodeMarkup(d domain.Document) string {
	var sb strings.Builder
	sb.WriteString("<div class='editor'>")
	for _, b := range d.Blocks {
		switch v := b.(type) {
		case domain.TextBlock:
			tag := "p"
			if v.Heading {
				tag = "h1"
			}
			sb.WriteString("<div class='text'><" + tag + ">")
			writeRichText(&sb, v.Text)
			sb.WriteString("</" + tag + "></div>")
		case domain.ImageGridBlock:
			sb.WriteString("<div class='img-row' cols='" + strconv.Itoa(v.Columns) + "'>")
			for _, group := range GroupImages(v.Images) {
				sb.WriteString("<div class='sub'>")
				for _, img := range group {
					sb.WriteString("<img src='" + EscapeHTML(img.Ref) + "' data-portrait='" + strconv.FormatBool(img.Portrait) + "'/>")
				}
				sb.WriteString("</div>")
			}
			sb.WriteString("</div>")
		case domain.VideoBlock:
			sb.WriteString("<div class='video' data-uri='" + EscapeHTML(v.Ref) + "'></div>")
		case domain.EmbeddedLinkBlock:
			sb.WriteString("<div class='youtube' data-url='" + EscapeHTML(v.URL) + "'></div>")
		default:
			domain.MustKnownBlock(b)
		}
	}
	sb.WriteString("</div>")
	return sb.String()
}

func writeRichText(sb *strings.Builder, t richtext.Text) {
	for _, seg := range t.Segments() {
		for _, k := range richtext.Kinds {
			if seg.Styles.Has(k) {
				sb.WriteString("<" + styleTags[k] + ">")
			}
		}
		sb.WriteString(textEscaper.Replace(seg.Text))
		for i := len(richtext.Kinds) - 1; i >= 0; i-- {
			if k := richtext.Kinds[i]; seg.Styles.Has(k) {
				sb.WriteString("</" + styleTags[k] + ">")
			}
		}
	}
}

// GroupImages splits a grid into display groups. Portraits pair up; a
// landscape image closes any pending portrait group and stands alone.
// The landscape flush is deliberate: [portrait, landscape] yields two
// single-image groups, never one group of two.
func GroupImages(images []domain.Image) [][]domain.Image {
	var groups [][]domain.Image
	var buf []domain.Image
	flush := func() {
		if len(buf) > 0 {
			groups = append(groups, buf)
			buf = nil
		}
	}
	for _, img := range images {
		if !img.Portrait {
			flush()
			groups = append(groups, []domain.Image{img})
			continue
		}
		buf = append(buf, img)
		if len(buf) == 2 {
			flush()
		}
	}
	flush()
	return groups
}
