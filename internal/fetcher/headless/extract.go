package headless

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/weibo-relay/internal/relay"
)

// Extraction failures.
var (
	ErrRegionNotFound   = errors.New("structured text region not found")
	ErrMalformedPayload = errors.New("malformed timeline payload")
)

type timelineDocument struct {
	Data *struct {
		List *[]relay.Item `json:"list"`
	} `json:"data"`
}

// ExtractItems finds the first element matching selector in the rendered HTML
// and decodes its text as a {data: {list: [...]}} document.
func ExtractItems(html, selector string) ([]relay.Item, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}
	region := doc.Find(selector).First()
	if region.Length() == 0 {
		return nil, ErrRegionNotFound
	}
	return DecodeTimeline([]byte(region.Text()))
}

// DecodeTimeline decodes the raw JSON payload of the timeline endpoint.
func DecodeTimeline(raw []byte) ([]relay.Item, error) {
	var doc timelineDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if doc.Data == nil || doc.Data.List == nil {
		return nil, fmt.Errorf("%w: missing data.list", ErrMalformedPayload)
	}
	return *doc.Data.List, nil
}
