package htmlx

import (
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/mdschema/internal/doctree"
)

// Media types carried on media elements.
const (
	MediaImage  = "image"
	MediaVideo  = "video"
	MediaIframe = "iframe"
)

// Media is an <img>, <video> or <iframe> found in raw HTML.
type Media struct {
	URL      string
	Tag      string
	Align    string
	Alt      string
	Poster   string
	Height   int
	Width    int
	Controls bool
	Autoplay bool
	Loop     bool
	Muted    bool
}

var (
	videoWithSource = regexp.MustCompile(`^\s*<video[^>\n]*>(?s:.*?)<source[^>]*src="([^"\n]+)"[^>]*>(?s:.*?)</video>\s*$`)
	mediaPatterns   = []*regexp.Regexp{
		regexp.MustCompile(`^\s*<(img|video|iframe)[^>\n]*>.*?</(?:img|video|iframe)>\s*$`),
		regexp.MustCompile(`^\s*<(img|video|iframe)[^>\n]*/?>(.*</(?:img|video|iframe)>)?\s*$`),
		regexp.MustCompile(`^\s*<(img|video|iframe)[^>\n]*/>\s*$`),
		regexp.MustCompile(`^\s*<(img|video|iframe)[^>\n]*>\s*$`),
	}
	mediaEndTag = regexp.MustCompile(`^</(img|video|iframe)>`)

	srcAttr     = regexp.MustCompile(`src="([^"\n]+)"`)
	sourceTag   = regexp.MustCompile(`<source[^>]*src="([^"\n]+)"[^>]*>`)
	heightAttr  = regexp.MustCompile(`height="(\d+)"`)
	widthAttr   = regexp.MustCompile(`width="(\d+)"`)
	alignAttr   = regexp.MustCompile(`data-align="(\w+)"`)
	altAttr     = regexp.MustCompile(`alt="([^"\n]+)"`)
	posterAttr  = regexp.MustCompile(`poster="([^"\n]+)"`)
	attachment  = regexp.MustCompile(`^\s*<a[^>\n]*download[^>\n]*/?>(.*</a>:?)?\s*$`)
	hrefAttr    = regexp.MustCompile(`href="([^"\n]+)"`)
	sizeAttr    = regexp.MustCompile(`data-size="(\d+)"`)
	anchorLabel = regexp.MustCompile(`>(.*)</a>`)
)

// FindMedia recognizes a fragment that is exactly one media tag.
func FindMedia(s string) (Media, bool) {
	if m := videoWithSource.FindStringSubmatch(s); m != nil {
		media := mediaAttributes(s)
		media.URL = m[1]
		media.Tag = "video"
		return media, true
	}
	for _, re := range mediaPatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		media := mediaAttributes(m[0])
		media.Tag = m[1]
		if src := srcAttr.FindStringSubmatch(m[0]); src != nil {
			media.URL = src[1]
		} else if media.Tag == "video" {
			if src := sourceTag.FindStringSubmatch(m[0]); src != nil {
				media.URL = src[1]
			}
		}
		return media, true
	}
	return Media{}, false
}

// IsMediaEndTag reports whether s starts with a dangling media end tag.
func IsMediaEndTag(s string) bool {
	return mediaEndTag.MatchString(s)
}

func mediaAttributes(s string) Media {
	var m Media
	m.Height = intAttr(heightAttr, s)
	m.Width = intAttr(widthAttr, s)
	m.Align = strAttr(alignAttr, s)
	m.Alt = strAttr(altAttr, s)
	m.Poster = strAttr(posterAttr, s)
	m.Controls = strings.Contains(s, "controls")
	m.Autoplay = strings.Contains(s, "autoplay")
	m.Loop = strings.Contains(s, "loop")
	m.Muted = strings.Contains(s, "muted")
	return m
}

func strAttr(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func intAttr(re *regexp.Regexp, s string) int {
	n, _ := strconv.Atoi(strAttr(re, s))
	return n
}

// Attachment is a download link written as raw HTML.
type Attachment struct {
	URL  string
	Size int64
	Name string
}

// FindAttachment recognizes `<a download href="..." data-size="...">name</a>`.
func FindAttachment(s string) (Attachment, bool) {
	m := attachment.FindString(s)
	if m == "" {
		return Attachment{}, false
	}
	href := hrefAttr.FindStringSubmatch(m)
	if href == nil {
		return Attachment{}, false
	}
	a := Attachment{URL: href[1]}
	if size := sizeAttr.FindStringSubmatch(m); size != nil {
		a.Size, _ = strconv.ParseInt(size[1], 10, 64)
	}
	if name := anchorLabel.FindStringSubmatch(s); name != nil {
		a.Name = name[1]
	} else {
		a.Name = a.URL
	}
	return a, true
}

// Decoder turns raw URLs into display URLs, logging the ones it cannot
// decode.
type Decoder struct {
	log *slog.Logger
}

// NewDecoder returns a Decoder logging to log, or slog.Default when nil.
func NewDecoder(log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{log: log}
}

// DecodeURI percent-decodes s. Malformed input is returned unchanged.
func (d *Decoder) DecodeURI(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		d.log.Warn("decode uri component", "url", s, "error", err)
		return s
	}
	return out
}

// MediaElement builds the card-wrapped media element for m.
func (d *Decoder) MediaElement(m Media) *doctree.Element {
	typ := MediaImage
	switch m.Tag {
	case "video":
		typ = MediaVideo
	case "iframe":
		typ = MediaIframe
	}
	return doctree.WrapCard(&doctree.Element{
		Type:      doctree.TypeMedia,
		URL:       d.DecodeURI(m.URL),
		MediaType: typ,
		Align:     m.Align,
		Alt:       m.Alt,
		Height:    m.Height,
		Width:     m.Width,
		Controls:  m.Controls,
		Autoplay:  m.Autoplay,
		Loop:      m.Loop,
		Muted:     m.Muted,
		Poster:    m.Poster,
		Children:  doctree.Nodes{doctree.Text("")},
	})
}

// ImageElement builds the card-wrapped media element for a Markdown image.
func (d *Decoder) ImageElement(rawURL, alt string, finished *bool) *doctree.Element {
	card := d.MediaElement(Media{URL: rawURL, Tag: "img", Alt: alt})
	if finished != nil && !*finished {
		card.Children[1].(*doctree.Element).Finished = doctree.Bool(false)
	}
	return card
}

// AttachmentElement builds an attach element with its card sentinels.
func (d *Decoder) AttachmentElement(a Attachment) *doctree.Element {
	return &doctree.Element{
		Type:     doctree.TypeAttach,
		URL:      d.DecodeURI(a.URL),
		Size:     a.Size,
		Name:     a.Name,
		Children: doctree.CardSentinels(),
	}
}
