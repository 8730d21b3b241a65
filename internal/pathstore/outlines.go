package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// OutlineRecord is the value stored at outlines/<doc_id>.
type OutlineRecord struct {
	DocID       string          `json:"doc_id"`
	Filename    string          `json:"filename"`
	ContentHash string          `json:"content_hash"`
	Pages       int             `json:"pages"`
	PageBase    int             `json:"page_base"`
	Document    json.RawMessage `json:"document"`
	CreatedAt   string          `json:"created_at"`
}

// OutlineKey returns the node path of a document outline.
func OutlineKey(docID string) string {
	return "outlines/" + docID
}

func hashPrefix(contentHash string) string {
	return "outlines/by_hash/" + contentHash
}

// PublishOutline stores rec and indexes it by content hash.
func (c *Client) PublishOutline(ctx context.Context, rec OutlineRecord) error {
	if err := c.PutNode(ctx, OutlineKey(rec.DocID), NodeRequest{
		Value:  rec,
		Source: "pdfoutline",
	}); err != nil {
		return fmt.Errorf("publish outline %s: %w", rec.DocID, err)
	}
	if rec.ContentHash == "" {
		return nil
	}
	if err := c.PutNode(ctx, hashPrefix(rec.ContentHash)+"/"+rec.DocID, NodeRequest{
		Value:  map[string]string{"doc_id": rec.DocID},
		Source: "pdfoutline",
	}); err != nil {
		return fmt.Errorf("index outline %s: %w", rec.DocID, err)
	}
	return nil
}

// FindByHash returns a previously published outline with the same content
// hash, or nil when there is none.
func (c *Client) FindByHash(ctx context.Context, contentHash string) (*OutlineRecord, error) {
	children, err := c.ListChildren(ctx, hashPrefix(contentHash), 1)
	if err != nil {
		return nil, fmt.Errorf("lookup hash: %w", err)
	}
	for _, child := range children {
		docID := child.Key[strings.LastIndex(child.Key, "/")+1:]
		var ref struct {
			DocID string `json:"doc_id"`
		}
		if json.Unmarshal(child.Value, &ref) == nil && ref.DocID != "" {
			docID = ref.DocID
		}
		if docID == "" {
			continue
		}

		node, err := c.GetNode(ctx, OutlineKey(docID))
		if err != nil {
			return nil, fmt.Errorf("fetch outline %s: %w", docID, err)
		}
		if node == nil {
			continue
		}
		var rec OutlineRecord
		if err := json.Unmarshal(node.Value, &rec); err != nil {
			return nil, fmt.Errorf("decode outline %s: %w", docID, err)
		}
		return &rec, nil
	}
	return nil, nil
}
