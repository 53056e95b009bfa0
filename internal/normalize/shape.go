package normalize

import (
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
)

// json decodes numbers as json.Number so ids and phone numbers keep their
// exact digits, and sorts map keys so re-encoded items hash stably.
var json = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// WrappedKeys is the priority order used to find the message list inside an
// object response. The first key holding an array wins.
var WrappedKeys = []string{"sms", "messages", "data"}

// ShapeKind identifies which layout the panel answered with.
type ShapeKind int

const (
	ShapeUnknown ShapeKind = iota
	ShapeList
	ShapeWrapped
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeList:
		return "list"
	case ShapeWrapped:
		return "wrapped"
	default:
		return "unknown"
	}
}

// Shape is the decoded response resolved to its message items.
type Shape struct {
	Kind  ShapeKind
	Key   string   // set for ShapeWrapped
	Keys  []string // top-level keys of an object response
	Items []any
}

// Decode parses a raw panel response. Valid JSON that holds no recognizable
// message list yields ShapeUnknown with no items and a nil error.
func Decode(raw []byte) (Shape, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Shape{}, fmt.Errorf("decode response: %w", err)
	}

	switch data := v.(type) {
	case []any:
		return Shape{Kind: ShapeList, Items: data}, nil
	case map[string]any:
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range WrappedKeys {
			if items, ok := data[key].([]any); ok {
				return Shape{Kind: ShapeWrapped, Key: key, Keys: keys, Items: items}, nil
			}
		}
		return Shape{Kind: ShapeUnknown, Keys: keys}, nil
	default:
		return Shape{Kind: ShapeUnknown}, nil
	}
}
