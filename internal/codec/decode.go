package codec

import (
	"strconv"
	"strings"

	"blockpad/internal/domain"
	"blockpad/internal/richtext"

	"golang.org/x/net/html"
)

// DecodeMarkup parses markup produced by EncodeMarkup, plus the older
// element-per-block format (<p>, <h1>, <image-grid>, <video>, <youtube>).
// It never fails: unreadable input degrades to text, and the result always
// holds at least one text block. probe resolves the orientation of images
// whose markup does not record it; nil means DefaultProber.
func DecodeMarkup(markup string, probe OrientationProber) domain.Document {
	if probe == nil {
		probe = DefaultProber
	}
	d := &markupDecoder{probe: probe}
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			d.start(tok, tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			d.end(tok)
		case html.TextToken:
			d.chars(tok.Data)
		}
	}
	d.finishText()
	d.finishGrid()
	d.doc.Ensure()
	return d.doc
}

type textState struct {
	b       richtext.Builder
	heading bool
	depth   int    // div depth of the owning text div; 0 for legacy top-level elements
	closer  string // legacy closing tag
	inPara  int
	paras   int
	styles  [len(richtext.Kinds)]int
}

type gridState struct {
	images []domain.Image
	cols   int
	depth  int
	closer string
}

type markupDecoder struct {
	probe OrientationProber
	doc   domain.Document
	divs  int
	text  *textState
	grid  *gridState
}

func attr(tok html.Token, key string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (d *markupDecoder) start(tok html.Token, selfClosing bool) {
	switch tok.Data {
	case "div":
		if selfClosing {
			return
		}
		d.divs++
		if d.text != nil {
			return
		}
		class, _ := attr(tok, "class")
		switch class {
		case "text":
			d.finishGrid()
			d.text = &textState{depth: d.divs}
		case "img-row":
			d.finishGrid()
			d.grid = &gridState{cols: parseCols(tok), depth: d.divs}
		case "video":
			if uri, ok := attr(tok, "data-uri"); ok && uri != "" {
				d.doc.Blocks = append(d.doc.Blocks, domain.VideoBlock{ID: domain.NewID(), Ref: uri})
			}
		case "youtube":
			url, _ := attr(tok, "data-url")
			d.addLink(url)
		}
	case "p", "h1":
		if d.text == nil {
			if d.grid != nil {
				return
			}
			d.text = &textState{closer: tok.Data}
		}
		if tok.Data == "h1" {
			d.text.heading = true
		}
		if d.text.paras > 0 {
			d.text.b.Append("\n", 0)
		}
		d.text.paras++
		d.text.inPara++
	case "br":
		if d.text != nil {
			d.text.b.Append("\n", d.text.set())
		}
	case "b", "strong":
		d.style(richtext.Bold, 1)
	case "i", "em":
		d.style(richtext.Italic, 1)
	case "u":
		d.style(richtext.Underline, 1)
	case "img":
		if d.grid == nil {
			return
		}
		src, _ := attr(tok, "src")
		if src == "" {
			return
		}
		img := domain.Image{Ref: src}
		if v, ok := attr(tok, "data-portrait"); ok {
			img.Portrait, _ = strconv.ParseBool(v)
		} else {
			img.Portrait = d.probe.Portrait(src)
		}
		d.grid.images = append(d.grid.images, img)
	case "image-grid":
		if d.text != nil {
			return
		}
		d.finishGrid()
		d.grid = &gridState{cols: parseCols(tok), closer: "image-grid"}
		if selfClosing {
			d.finishGrid()
		}
	case "video":
		if d.text != nil || d.grid != nil {
			return
		}
		if src, ok := attr(tok, "src"); ok && src != "" {
			d.doc.Blocks = append(d.doc.Blocks, domain.VideoBlock{ID: domain.NewID(), Ref: src})
		}
	case "youtube":
		if d.text != nil || d.grid != nil {
			return
		}
		if id, ok := attr(tok, "id"); ok {
			d.addLink("https://youtu.be/" + id)
		} else if url, ok := attr(tok, "url"); ok {
			d.addLink(url)
		}
	}
}

func (d *markupDecoder) end(tok html.Token) {
	switch tok.Data {
	case "div":
		if d.divs == 0 {
			return
		}
		if d.text != nil && d.text.closer == "" && d.text.depth == d.divs {
			d.finishText()
		}
		if d.grid != nil && d.grid.closer == "" && d.grid.depth == d.divs {
			d.finishGrid()
		}
		d.divs--
	case "p", "h1":
		if d.text == nil {
			return
		}
		if d.text.inPara > 0 {
			d.text.inPara--
		}
		if d.text.closer == tok.Data {
			d.finishText()
		}
	case "b", "strong":
		d.style(richtext.Bold, -1)
	case "i", "em":
		d.style(richtext.Italic, -1)
	case "u":
		d.style(richtext.Underline, -1)
	case "image-grid":
		if d.grid != nil && d.grid.closer == "image-grid" {
			d.finishGrid()
		}
	}
}

func (d *markupDecoder) chars(data string) {
	if d.text != nil {
		if d.text.inPara == 0 && strings.TrimSpace(data) == "" {
			return
		}
		d.text.b.Append(data, d.text.set())
		return
	}
	if d.grid != nil || strings.TrimSpace(data) == "" {
		return
	}
	// Loose text outside any block becomes its own paragraph.
	d.doc.Blocks = append(d.doc.Blocks, domain.NewTextBlock(richtext.Plain(strings.TrimSpace(data))))
}

func (d *markupDecoder) style(k richtext.StyleKind, delta int) {
	if d.text == nil {
		return
	}
	d.text.styles[k] = max(0, d.text.styles[k]+delta)
}

func (t *textState) set() richtext.StyleSet {
	var set richtext.StyleSet
	for _, k := range richtext.Kinds {
		if t.styles[k] > 0 {
			set = set.With(k)
		}
	}
	return set
}

func (d *markupDecoder) addLink(url string) {
	if d.text != nil || d.grid != nil {
		return
	}
	if link, ok := domain.ResolveLink(url); ok {
		d.doc.Blocks = append(d.doc.Blocks, link)
	}
}

func (d *markupDecoder) finishText() {
	if d.text == nil {
		return
	}
	d.doc.Blocks = append(d.doc.Blocks, domain.TextBlock{
		ID:      domain.NewID(),
		Text:    d.text.b.Text(),
		Heading: d.text.heading,
	})
	d.text = nil
}

func (d *markupDecoder) finishGrid() {
	if d.grid == nil {
		return
	}
	if len(d.grid.images) > 0 {
		cols := d.grid.cols
		if cols == 0 {
			cols = len(d.grid.images)
		}
		d.doc.Blocks = append(d.doc.Blocks, domain.ImageGridBlock{
			ID:      domain.NewID(),
			Images:  d.grid.images,
			Columns: domain.ClampColumns(cols),
		})
	}
	d.grid = nil
}

func parseCols(tok html.Token) int {
	v, ok := attr(tok, "cols")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}
