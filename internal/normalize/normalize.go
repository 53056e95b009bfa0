// Package normalize turns panel responses of varying shape and schema into
// canonical feed messages.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/zeebo/xxh3"

	"github.com/danhigham/otpfeed/internal/domain"
	"github.com/danhigham/otpfeed/internal/extract"
)

const (
	// TimestampLayout is how panel timestamps are parsed (first 19 chars).
	TimestampLayout = "2006-01-02T15:04:05"
	// DisplayLayout is how timestamps are shown in the feed.
	DisplayLayout = "2006-01-02 03:04 PM"

	rawMessageLimit = 200
	unknown         = "Unknown"
)

// Aliases is an ordered list of field names that carry the same value across
// panel versions. Content and timestamp take the first field present, even
// when it is empty; the other fields skip empty values.
type Aliases []string

// Field alias policies. Order is significant.
var (
	IDFields        = Aliases{"id", "_id"}
	ContentFields   = Aliases{"content", "message", "text"}
	PhoneFields     = Aliases{"Number", "number", "phone", "phone_number"}
	CountryFields   = Aliases{"country", "Country"}
	ServiceFields   = Aliases{"service", "Service", "sender"}
	TimestampFields = Aliases{"created_at", "timestamp", "received_at"}
)

// First returns the value of the first alias present and non-null.
func (a Aliases) First(item map[string]any) (string, bool, error) {
	for _, name := range a {
		v, ok := item[name]
		if !ok || v == nil {
			continue
		}
		s, err := scalarString(v)
		if err != nil {
			return "", false, fmt.Errorf("field %q: %w", name, err)
		}
		return s, true, nil
	}
	return "", false, nil
}

// Lookup returns the first non-empty value among the aliases.
func (a Aliases) Lookup(item map[string]any) (string, bool, error) {
	for _, name := range a {
		v, ok := item[name]
		if !ok || v == nil {
			continue
		}
		s, err := scalarString(v)
		if err != nil {
			return "", false, fmt.Errorf("field %q: %w", name, err)
		}
		if s != "" {
			return s, true, nil
		}
	}
	return "", false, nil
}

func scalarString(v any) (string, error) {
	if n, ok := jsoniter.CastJsonNumber(v); ok {
		return n, nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// ItemFailure records a panel item that could not be normalized.
type ItemFailure struct {
	Index int
	Err   error
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("item %d: %v", f.Index, f.Err)
}

// Result is the outcome of normalizing one response.
type Result struct {
	Shape    Shape
	Messages []domain.Message
	Failures []ItemFailure
}

// Normalizer converts panel items to domain messages.
type Normalizer struct {
	// Now supplies the fallback timestamp. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Normalizer using the wall clock.
func New() *Normalizer {
	return &Normalizer{Now: time.Now}
}

// Normalize decodes raw and maps every item, preserving source order. A bad
// item is recorded in Result.Failures and skipped; only an undecodable
// response returns an error.
func (n *Normalizer) Normalize(raw []byte) (Result, error) {
	shape, err := Decode(raw)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Shape:    shape,
		Messages: make([]domain.Message, 0, len(shape.Items)),
	}
	for i, item := range shape.Items {
		msg, err := n.Message(item)
		if err != nil {
			res.Failures = append(res.Failures, ItemFailure{Index: i, Err: err})
			continue
		}
		res.Messages = append(res.Messages, msg)
	}
	return res, nil
}

// Message maps a single decoded panel item.
func (n *Normalizer) Message(item any) (domain.Message, error) {
	fields, ok := item.(map[string]any)
	if !ok {
		return domain.Message{}, fmt.Errorf("item is %T, not an object", item)
	}

	content, _, err := ContentFields.First(fields)
	if err != nil {
		return domain.Message{}, err
	}
	phone, ok, err := PhoneFields.Lookup(fields)
	if err != nil {
		return domain.Message{}, err
	}
	if !ok {
		phone = unknown
	}
	country, ok, err := CountryFields.Lookup(fields)
	if err != nil {
		return domain.Message{}, err
	}
	flag := extract.CountryFlag(country)
	if !ok {
		country = unknown
	}
	service, ok, err := ServiceFields.Lookup(fields)
	if err != nil {
		return domain.Message{}, err
	}
	if !ok {
		service = extract.DetectService(content)
	}
	ts, _, err := TimestampFields.First(fields)
	if err != nil {
		ts = ""
	}
	id, ok, err := IDFields.Lookup(fields)
	if err != nil || !ok {
		id, err = FallbackID(fields)
		if err != nil {
			return domain.Message{}, err
		}
	}

	return domain.Message{
		ID:          id,
		OTP:         extract.ExtractOTP(content),
		Phone:       phone,
		PhoneMasked: extract.MaskPhone(phone),
		Service:     service,
		Country:     country,
		CountryFlag: flag,
		Timestamp:   n.displayTime(ts),
		RawMessage:  truncate(content, rawMessageLimit),
	}, nil
}

// displayTime reformats a panel timestamp, substituting the current time
// when it is absent or unparseable.
func (n *Normalizer) displayTime(ts string) string {
	if r := []rune(strings.TrimSpace(ts)); len(r) >= len(TimestampLayout) {
		if t, err := time.Parse(TimestampLayout, string(r[:len(TimestampLayout)])); err == nil {
			return t.Format(DisplayLayout)
		}
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	return now().Format(DisplayLayout)
}

// FallbackID derives a stable id from the item's full content. Keys are
// encoded in sorted order so equal items always hash alike.
func FallbackID(item map[string]any) (string, error) {
	b, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("hash item: %w", err)
	}
	return fmt.Sprintf("h%016x", xxh3.Hash(b)), nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
