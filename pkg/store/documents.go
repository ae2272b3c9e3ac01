package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// PutJSONDocument stores any JSON-marshalable value as a document,
// returning the id the store settled on.
func PutJSONDocument(ctx context.Context, docs DocumentStore, location, id string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("document must encode to an object: %w", err)
	}
	return docs.PutDocument(ctx, location, id, doc)
}

// GetJSONDocument fetches a document and decodes it into v.
func GetJSONDocument(ctx context.Context, docs DocumentStore, location, id string, v any) error {
	doc, err := docs.GetDocument(ctx, location, id)
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("re-encode document %s/%s: %w", location, id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document %s/%s: %w", location, id, err)
	}
	return nil
}
