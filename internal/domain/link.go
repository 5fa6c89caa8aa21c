package domain

import "regexp"

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`v=([\w-]{11})`),
	regexp.MustCompile(`youtu\.be/([\w-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([\w-]{11})`),
}

// ExtractVideoID returns the 11-character video id carried by url.
func ExtractVideoID(url string) (string, bool) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func ThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/hqdefault.jpg"
}

// ResolveLink builds a link block for url. ok is false when no video id can
// be extracted.
func ResolveLink(url string) (EmbeddedLinkBlock, bool) {
	id, ok := ExtractVideoID(url)
	if !ok {
		return EmbeddedLinkBlock{}, false
	}
	return EmbeddedLinkBlock{ID: NewID(), URL: url, VideoID: id, ThumbnailURL: ThumbnailURL(id)}, true
}
