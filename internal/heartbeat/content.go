// Package heartbeat builds and sends the periodic liveness message.
package heartbeat

import (
	"encoding/json"
	"fmt"
	"os"
)

// Content is the pool of phrases a heartbeat draws from.
type Content struct {
	Emojis []string `json:"kawaii_emojis"`
	Texts  []string `json:"kawaii_texts"`
	Titles []string `json:"kawaii_titles"`
}

// Validate rejects content with an empty pool.
func (c Content) Validate() error {
	switch {
	case len(c.Emojis) == 0:
		return fmt.Errorf("heartbeat content: kawaii_emojis is empty")
	case len(c.Texts) == 0:
		return fmt.Errorf("heartbeat content: kawaii_texts is empty")
	case len(c.Titles) == 0:
		return fmt.Errorf("heartbeat content: kawaii_titles is empty")
	}
	return nil
}

// LoadContent reads and validates the content file at path.
func LoadContent(path string) (Content, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("read heartbeat content: %w", err)
	}
	var c Content
	if err := json.Unmarshal(raw, &c); err != nil {
		return Content{}, fmt.Errorf("decode heartbeat content %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Content{}, err
	}
	return c, nil
}
