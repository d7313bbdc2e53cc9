package meta

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SourceFileKey is the top-level key exiftool uses to name the file a
// document was extracted from.
const SourceFileKey = "SourceFile"

// ParseJSON decodes exiftool JSON output. Both a single object and the usual
// array of objects (one per file) are accepted.
func ParseJSON(data []byte) ([]Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty metadata document")
	}

	var root Value
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode metadata JSON: %w", err)
	}

	switch root.Kind() {
	case KindMap:
		return []Value{root}, nil
	case KindArray:
		docs := make([]Value, 0, root.Len())
		for i := 0; i < root.Len(); i++ {
			doc := root.Index(i)
			if doc.Kind() != KindMap {
				return nil, fmt.Errorf("metadata entry %d is a %s, not an object", i, doc.Kind())
			}
			docs = append(docs, doc)
		}
		return docs, nil
	default:
		return nil, fmt.Errorf("metadata document is a %s, not an object", root.Kind())
	}
}

// FromGrouped builds a nested document from the flat "Group:Tag" keys that
// exiftool emits with -G. Keys without a group stay at the top level.
func FromGrouped(fields map[string]any) Value {
	root := make(map[string]any)
	groups := make(map[string]map[string]any)
	for key, val := range fields {
		group, tag, ok := strings.Cut(key, ":")
		if !ok || group == "" || tag == "" {
			root[key] = val
			continue
		}
		g, exists := groups[group]
		if !exists {
			g = make(map[string]any)
			groups[group] = g
		}
		g[tag] = val
	}
	for name, g := range groups {
		root[name] = g
	}
	return FromAny(root)
}

// SourceFile returns the file a document describes, if recorded.
func SourceFile(doc Value) string {
	s, _ := doc.Get(SourceFileKey).Text()
	return s
}
