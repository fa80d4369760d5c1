package fetcher

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/dmtral/aipulse/app/model"
)

// FeedInfo describes one RSS subscription from the OPML list. The
// notifyAs attribute lets a feed route its entries through the release
// pipeline instead of the blog one.
type FeedInfo struct {
	Title    string
	XMLURL   string
	HTMLURL  string
	Category string
	NotifyAs model.Kind
}

type opmlDocument struct {
	Body opmlBody `xml:"body"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Type     string        `xml:"type,attr"`
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	HTMLURL  string        `xml:"htmlUrl,attr"`
	NotifyAs string        `xml:"notifyAs,attr"`
	Outlines []opmlOutline `xml:"outline"`
}

// ParseOPML reads the subscription list, flattening one level of
// category outlines the way feed readers export them.
func ParseOPML(path string) ([]FeedInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OPML file: %w", err)
	}

	var doc opmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OPML: %w", err)
	}

	var feeds []FeedInfo
	for _, category := range doc.Body.Outlines {
		categoryName := category.Title
		if categoryName == "" {
			categoryName = category.Text
		}

		// Top-level outlines that are feeds themselves get an empty category.
		candidates := category.Outlines
		if category.Type == "rss" {
			candidates = []opmlOutline{category}
			categoryName = ""
		}

		for _, outline := range candidates {
			if outline.Type != "rss" || outline.XMLURL == "" {
				continue
			}

			title := outline.Title
			if title == "" {
				title = outline.Text
			}

			notifyAs := model.KindBlog
			if model.Kind(outline.NotifyAs) == model.KindRelease {
				notifyAs = model.KindRelease
			}

			feeds = append(feeds, FeedInfo{
				Title:    title,
				XMLURL:   outline.XMLURL,
				HTMLURL:  outline.HTMLURL,
				Category: categoryName,
				NotifyAs: notifyAs,
			})
		}
	}

	return feeds, nil
}
