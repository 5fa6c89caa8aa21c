package codec_test

import (
	"reflect"
	"strings"
	"testing"

	"blockpad/internal/codec"
	"blockpad/internal/domain"
	"blockpad/internal/richtext"
)

var noProbe = codec.ProberFunc(func(string) bool { return true })

func sampleDocument() domain.Document {
	title := richtext.Plain("Trip & notes").Toggle(richtext.Bold, richtext.Range{Start: 0, End: 4})
	body := richtext.Plain("line one\nline <two>\r\nend 😀 'quoted'")
	body = body.Toggle(richtext.Italic, richtext.Range{Start: 5, End: 14})
	body = body.Toggle(richtext.Underline, richtext.Range{Start: 10, End: 20})
	body = body.Toggle(richtext.Bold, richtext.Range{Start: 28, End: 30})

	return domain.Document{Blocks: []domain.Block{
		domain.TextBlock{ID: "t1", Text: title, Heading: true},
		domain.ImageGridBlock{ID: "g1", Columns: 2, Images: []domain.Image{
			{Ref: "file:///pics/a.jpg", Portrait: true},
			{Ref: "file:///pics/b&c.jpg", Portrait: false},
			{Ref: "file:///pics/d.jpg", Portrait: true},
		}},
		domain.TextBlock{ID: "t2", Text: body},
		domain.VideoBlock{ID: "v1", Ref: "content://media/video/7", Thumbnail: []byte{0x89, 'P', 'N', 'G'}},
		domain.EmbeddedLinkBlock{
			ID: "y1", URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=1",
			VideoID: "dQw4w9WgXcQ", ThumbnailURL: domain.ThumbnailURL("dQw4w9WgXcQ"),
		},
		domain.TextBlock{ID: "t3"},
	}}
}

// ─────────────────────────────────────────────────────────────
// Markup
// ─────────────────────────────────────────────────────────────

func TestMarkup_RoundTripPreservesStructure(t *testing.T) {
	doc := sampleDocument()
	got := codec.DecodeMarkup(codec.EncodeMarkup(doc), noProbe)

	if len(got.Blocks) != len(doc.Blocks) {
		t.Fatalf("expected %d blocks, got %d", len(doc.Blocks), len(got.Blocks))
	}
	for i, want := range doc.Blocks {
		if got.Blocks[i].Kind() != want.Kind() {
			t.Fatalf("block %d: expected kind %s, got %s", i, want.Kind(), got.Blocks[i].Kind())
		}
		switch w := want.(type) {
		case domain.TextBlock:
			g := got.Blocks[i].(domain.TextBlock)
			if g.Text.Content != w.Text.Content {
				t.Errorf("block %d: expected content %q, got %q", i, w.Text.Content, g.Text.Content)
			}
			if !reflect.DeepEqual(g.Text.Spans, w.Text.Spans) {
				t.Errorf("block %d: expected spans %v, got %v", i, w.Text.Spans, g.Text.Spans)
			}
			if g.Heading != w.Heading {
				t.Errorf("block %d: heading mismatch", i)
			}
		case domain.ImageGridBlock:
			g := got.Blocks[i].(domain.ImageGridBlock)
			if !reflect.DeepEqual(g.Images, w.Images) || g.Columns != w.Columns {
				t.Errorf("block %d: expected %+v, got %+v", i, w, g)
			}
		case domain.VideoBlock:
			if g := got.Blocks[i].(domain.VideoBlock); g.Ref != w.Ref {
				t.Errorf("block %d: expected ref %q, got %q", i, w.Ref, g.Ref)
			}
		case domain.EmbeddedLinkBlock:
			g := got.Blocks[i].(domain.EmbeddedLinkBlock)
			if g.URL != w.URL || g.VideoID != w.VideoID || g.ThumbnailURL != w.ThumbnailURL {
				t.Errorf("block %d: expected %+v, got %+v", i, w, g)
			}
		}
	}
}

func TestMarkup_EncodeShape(t *testing.T) {
	doc := domain.Document{Blocks: []domain.Block{
		domain.TextBlock{Text: richtext.Plain("a<b").Toggle(richtext.Bold, richtext.Range{Start: 0, End: 1})},
		domain.VideoBlock{Ref: "x'y"},
		domain.EmbeddedLinkBlock{URL: "https://youtu.be/dQw4w9WgXcQ?a=1&b=2"},
	}}
	want := "<div class='editor'>" +
		"<div class='text'><p><b>a</b>&lt;b</p></div>" +
		"<div class='video' data-uri='x&#39;y'></div>" +
		"<div class='youtube' data-url='https://youtu.be/dQw4w9WgXcQ?a=1&amp;b=2'></div>" +
		"</div>"
	if got := codec.EncodeMarkup(doc); got != want {
		t.Fatalf("unexpected markup\nwant %s\ngot  %s", want, got)
	}
}

func TestMarkup_SpanInsideSurrogatePairKeepsText(t *testing.T) {
	doc := domain.Document{Blocks: []domain.Block{
		domain.TextBlock{ID: "t1", Text: richtext.Text{
			Content: "a😀b",
			Spans:   []richtext.Span{{Kind: richtext.Bold, Start: 1, End: 2}},
		}},
	}}
	markup := codec.EncodeMarkup(doc)
	if strings.ContainsRune(markup, '\uFFFD') {
		t.Fatalf("encoded a replacement character: %s", markup)
	}
	got := codec.DecodeMarkup(markup, noProbe)
	if len(got.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(got.Blocks))
	}
	text := got.Blocks[0].(domain.TextBlock).Text
	if text.Content != "a😀b" {
		t.Fatalf("expected content %q, got %q", "a😀b", text.Content)
	}
	want := []richtext.Span{{Kind: richtext.Bold, Start: 1, End: 3}}
	if !reflect.DeepEqual(text.Spans, want) {
		t.Errorf("expected spans %v, got %v", want, text.Spans)
	}
}

func TestGroupImages(t *testing.T) {
	p := func(ref string) domain.Image { return domain.Image{Ref: ref, Portrait: true} }
	l := func(ref string) domain.Image { return domain.Image{Ref: ref} }

	tests := []struct {
		name   string
		images []domain.Image
		sizes  []int
	}{
		{"portrait then landscape", []domain.Image{p("a"), l("b")}, []int{1, 1}},
		{"portrait pair", []domain.Image{p("a"), p("b")}, []int{2}},
		{"three portraits", []domain.Image{p("a"), p("b"), p("c")}, []int{2, 1}},
		{"landscapes", []domain.Image{l("a"), l("b")}, []int{1, 1}},
		{"mixed", []domain.Image{p("a"), p("b"), l("c"), p("d"), l("e")}, []int{2, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := codec.GroupImages(tt.images)
			var sizes []int
			for _, g := range groups {
				sizes = append(sizes, len(g))
			}
			if !reflect.DeepEqual(sizes, tt.sizes) {
				t.Errorf("expected group sizes %v, got %v", tt.sizes, sizes)
			}
		})
	}
}

func TestDecodeMarkup_Garbage(t *testing.T) {
	for _, in := range []string{"", "<<<>>>", "<div class='editor'>", "</div></div>", "<div class='youtube' data-url='nope'></div>"} {
		doc := codec.DecodeMarkup(in, noProbe)
		if len(doc.Blocks) == 0 {
			t.Fatalf("input %q: expected at least one block", in)
		}
		hasText := false
		for _, b := range doc.Blocks {
			if b.Kind() == domain.BlockKindText {
				hasText = true
			}
		}
		if !hasText {
			t.Errorf("input %q: expected a text block", in)
		}
	}
}

func TestDecodeMarkup_LegacyFormat(t *testing.T) {
	in := `<h1>Title</h1>
<p>Hello <b>bold</b> world</p>
<image-grid cols="2"><img src="a.jpg"><img src="b.jpg"></image-grid>
<video src="clip.mp4"></video>
<youtube id="dQw4w9WgXcQ"></youtube>`

	probed := []string{}
	probe := codec.ProberFunc(func(ref string) bool {
		probed = append(probed, ref)
		return ref == "a.jpg"
	})
	doc := codec.DecodeMarkup(in, probe)

	kinds := []domain.BlockKind{}
	for _, b := range doc.Blocks {
		kinds = append(kinds, b.Kind())
	}
	want := []domain.BlockKind{
		domain.BlockKindText, domain.BlockKindText, domain.BlockKindImage,
		domain.BlockKindVideo, domain.BlockKindLink,
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("expected kinds %v, got %v", want, kinds)
	}

	heading := doc.Blocks[0].(domain.TextBlock)
	if !heading.Heading || heading.Text.Content != "Title" {
		t.Errorf("unexpected heading block %+v", heading)
	}
	para := doc.Blocks[1].(domain.TextBlock)
	if para.Text.Content != "Hello bold world" {
		t.Errorf("unexpected paragraph %q", para.Text.Content)
	}
	if !para.Text.Covered(richtext.Bold, richtext.Range{Start: 6, End: 10}) {
		t.Errorf("expected bold over 'bold', got %v", para.Text.Spans)
	}
	grid := doc.Blocks[2].(domain.ImageGridBlock)
	if grid.Columns != 2 || len(grid.Images) != 2 || !grid.Images[0].Portrait || grid.Images[1].Portrait {
		t.Errorf("unexpected grid %+v", grid)
	}
	if len(probed) != 2 {
		t.Errorf("expected prober to be asked twice, got %v", probed)
	}
	if link := doc.Blocks[4].(domain.EmbeddedLinkBlock); link.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("unexpected link %+v", link)
	}
}

func TestDecodeMarkup_MultipleParagraphsJoin(t *testing.T) {
	doc := codec.DecodeMarkup("<div class='editor'><div class='text'><p>one</p><p>two</p></div></div>", noProbe)
	if len(doc.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(doc.Blocks))
	}
	if got := doc.Blocks[0].(domain.TextBlock).Text.Content; got != "one\ntwo" {
		t.Errorf("expected %q, got %q", "one\ntwo", got)
	}
}

func TestDecodeMarkup_DropsUnresolvableLink(t *testing.T) {
	markup := codec.EncodeMarkup(domain.Document{Blocks: []domain.Block{
		domain.EmbeddedLinkBlock{URL: "https://example.com/no-video"},
	}})
	doc := codec.DecodeMarkup(markup, noProbe)
	if len(doc.Blocks) != 1 || doc.Blocks[0].Kind() != domain.BlockKindText {
		t.Fatalf("expected only the fallback text block, got %+v", doc.Blocks)
	}
}

// ─────────────────────────────────────────────────────────────
// Snapshot
// ─────────────────────────────────────────────────────────────

func TestSnapshot_RoundTripIsExact(t *testing.T) {
	doc := sampleDocument()
	got, err := codec.DecodeSnapshot(codec.EncodeSnapshot(doc))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Fatalf("snapshot round trip mismatch\nwant %+v\ngot  %+v", doc, got)
	}
}

func TestSnapshot_EncodeIsStable(t *testing.T) {
	doc := sampleDocument()
	a := codec.EncodeSnapshot(doc)
	decoded, _ := codec.DecodeSnapshot(a)
	if b := codec.EncodeSnapshot(decoded); a != b {
		t.Fatalf("expected identical snapshots\n%s\n%s", a, b)
	}
	if !strings.Contains(a, `"t":"b"`) {
		t.Errorf("expected short style codes in %s", a)
	}
}

func TestSnapshot_DecodeFailureFallsBack(t *testing.T) {
	for _, in := range []string{"", "{", `{"blocks":[{"type":"hologram"}]}`, `{"blocks":[{"type":"text","spans":[{"t":"z","s":0,"e":1}]}]}`} {
		doc, err := codec.DecodeSnapshot(in)
		if err == nil {
			t.Errorf("input %q: expected an error", in)
		}
		if len(doc.Blocks) != 1 || doc.Blocks[0].Kind() != domain.BlockKindText {
			t.Errorf("input %q: expected single text block, got %+v", in, doc.Blocks)
		}
	}
}
