package lucid

import (
	"encoding/json"
	"fmt"
)

// DocumentMetadata is the subset of a document's contents needed to export it
type DocumentMetadata struct {
	Title string     `json:"title"`
	Pages []PageMeta `json:"pages"`
}

// PageMeta describes one page. Its position in DocumentMetadata.Pages is the
// zero-based page index.
type PageMeta struct {
	Title string `json:"title"`
}

// wire shapes with explicit presence tracking
type rawDocument struct {
	Title *string    `json:"title"`
	Pages *[]rawPage `json:"pages"`
}

type rawPage struct {
	Title *string `json:"title"`
}

// decodeMetadata decodes a contents response, requiring title and every
// page title to be present as strings.
func decodeMetadata(body []byte) (*DocumentMetadata, error) {
	var raw rawDocument
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	if raw.Title == nil {
		return nil, fmt.Errorf("missing required field %q", "title")
	}
	if raw.Pages == nil {
		return nil, fmt.Errorf("missing required field %q", "pages")
	}

	meta := &DocumentMetadata{
		Title: *raw.Title,
		Pages: make([]PageMeta, len(*raw.Pages)),
	}
	for i, page := range *raw.Pages {
		if page.Title == nil {
			return nil, fmt.Errorf("missing required field %q", fmt.Sprintf("pages[%d].title", i))
		}
		meta.Pages[i] = PageMeta{Title: *page.Title}
	}

	return meta, nil
}
