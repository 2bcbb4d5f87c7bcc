package facet

import (
	"errors"
	"fmt"
	"strings"
)

// RootID is the reserved selection sentinel for "the whole tree". It never
// collides with node ids, which always carry the "key:" prefix.
const RootID = "root"

const (
	keyPrefix      = "key:"
	valueSeparator = "="
)

// ErrInvalidID is returned when a node id cannot be decoded.
var ErrInvalidID = errors.New("invalid node id")

var (
	segmentEscaper   = strings.NewReplacer("%", "%25", "=", "%3D")
	segmentUnescaper = strings.NewReplacer("%3D", "=", "%25", "%")
)

// NodeRef is a decoded node id. ValuePath is empty for key nodes.
type NodeRef struct {
	Key       string
	ValuePath string
}

// IsKey reports whether the reference points at a key node.
func (r NodeRef) IsKey() bool { return r.ValuePath == "" }

// ID re-encodes the reference.
func (r NodeRef) ID() string {
	if r.IsKey() {
		return EncodeKey(r.Key)
	}
	return EncodeValue(r.Key, r.ValuePath)
}

// EncodeKey returns the id of the key node for key.
func EncodeKey(key string) string {
	return keyPrefix + escapeSegment(NormalizeKey(key))
}

// EncodeValue returns the id of the value node for key and valuePath.
func EncodeValue(key, valuePath string) string {
	return EncodeKey(key) + valueSeparator + escapeSegment(NormalizeValuePath(valuePath))
}

// Decode parses a node id. The returned segments are unescaped but not
// re-normalized; use NormalizeID to canonicalise untrusted ids.
func Decode(id string) (NodeRef, error) {
	rest, ok := strings.CutPrefix(id, keyPrefix)
	if !ok {
		return NodeRef{}, fmt.Errorf("%w: %q: missing %q prefix", ErrInvalidID, id, keyPrefix)
	}
	rawKey, rawValue, hasValue := strings.Cut(rest, valueSeparator)
	key, err := unescapeSegment(rawKey)
	if err != nil {
		return NodeRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidID, id, err)
	}
	if key == "" {
		return NodeRef{}, fmt.Errorf("%w: %q: empty key", ErrInvalidID, id)
	}
	if !hasValue {
		return NodeRef{Key: key}, nil
	}
	value, err := unescapeSegment(rawValue)
	if err != nil {
		return NodeRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidID, id, err)
	}
	if value == "" {
		return NodeRef{}, fmt.Errorf("%w: %q: empty value path", ErrInvalidID, id)
	}
	return NodeRef{Key: key, ValuePath: value}, nil
}

// NormalizeID decodes id, case-folds both segments and re-encodes it.
// RootID passes through unchanged.
func NormalizeID(id string) (string, error) {
	if id == RootID {
		return RootID, nil
	}
	ref, err := Decode(id)
	if err != nil {
		return "", err
	}
	key := NormalizeKey(ref.Key)
	if key == "" {
		return "", fmt.Errorf("%w: %q: empty key", ErrInvalidID, id)
	}
	if ref.IsKey() {
		return EncodeKey(key), nil
	}
	value := NormalizeValuePath(ref.ValuePath)
	if value == "" {
		return EncodeKey(key), nil
	}
	return EncodeValue(key, value), nil
}

// IsValidID reports whether id decodes.
func IsValidID(id string) bool {
	_, err := Decode(id)
	return err == nil
}

func escapeSegment(s string) string {
	return segmentEscaper.Replace(s)
}

// unescapeSegment inverts escapeSegment in a single left-to-right pass, so an
// escaped literal "%253D" comes back as "%3D" and never as "=".
func unescapeSegment(s string) (string, error) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '=':
			return "", errors.New("unescaped '=' in segment")
		case '%':
			if !strings.HasPrefix(s[i:], "%25") && !strings.HasPrefix(s[i:], "%3D") {
				return "", fmt.Errorf("bad escape at offset %d", i)
			}
			i += 2
		}
	}
	return segmentUnescaper.Replace(s), nil
}
