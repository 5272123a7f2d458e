package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidIdentifier is returned when no usable id can be extracted.
var ErrInvalidIdentifier = errors.New("invalid identifier")

const maxIDDepth = 4

// NormalizeID reduces the id shapes seen on the wire to a plain string:
// a string, an object carrying an "_id" field, or a JSON-stringified such
// object. ObjectIDs and extended JSON {"$oid": ...} are accepted as well.
// Anything else is formatted with fmt as a last resort.
func NormalizeID(id any) (string, error) {
	return normalizeID(id, 0)
}

func normalizeID(id any, depth int) (string, error) {
	if depth > maxIDDepth {
		return "", fmt.Errorf("%w: nested too deeply", ErrInvalidIdentifier)
	}

	switch v := id.(type) {
	case nil:
		return "", ErrInvalidIdentifier
	case string:
		return normalizeString(v, depth)
	case primitive.ObjectID:
		if v.IsZero() {
			return "", ErrInvalidIdentifier
		}
		return v.Hex(), nil
	case *primitive.ObjectID:
		if v == nil {
			return "", ErrInvalidIdentifier
		}
		return normalizeID(*v, depth)
	case json.RawMessage:
		return normalizeJSON(v, depth)
	case []byte:
		return normalizeJSON(v, depth)
	case map[string]any:
		return normalizeObject(v, depth)
	case bson.M:
		return normalizeObject(v, depth)
	case bson.D:
		return normalizeObject(v.Map(), depth)
	case fmt.Stringer:
		return normalizeString(v.String(), depth)
	}

	s := fmt.Sprint(id)
	if s == "" {
		return "", ErrInvalidIdentifier
	}
	return s, nil
}

func normalizeString(s string, depth int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "[object Object]" {
		return "", ErrInvalidIdentifier
	}
	if strings.HasPrefix(s, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err == nil {
			return normalizeObject(obj, depth)
		}
		return "", fmt.Errorf("%w: malformed object %q", ErrInvalidIdentifier, s)
	}
	// A JSON string literal, e.g. "\"abc\"" from double encoding.
	if strings.HasPrefix(s, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			return normalizeString(inner, depth+1)
		}
	}
	return s, nil
}

func normalizeObject(obj map[string]any, depth int) (string, error) {
	if inner, ok := obj["_id"]; ok {
		return normalizeID(inner, depth+1)
	}
	if inner, ok := obj["$oid"]; ok {
		return normalizeID(inner, depth+1)
	}
	return "", fmt.Errorf("%w: object has no _id", ErrInvalidIdentifier)
}

func normalizeJSON(raw []byte, depth int) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	return normalizeID(v, depth+1)
}

// ParseObjectID normalizes id and parses it as a mongo ObjectID.
func ParseObjectID(id any) (primitive.ObjectID, error) {
	s, err := NormalizeID(id)
	if err != nil {
		return primitive.NilObjectID, err
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q is not an object id", ErrInvalidIdentifier, s)
	}
	return oid, nil
}
