package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeID_ThreeShapesAgree(t *testing.T) {
	inputs := map[string]any{
		"plain string":       "X",
		"object with _id":    map[string]any{"_id": "X"},
		"stringified object": `{"_id":"X"}`,
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := NormalizeID(in)
			require.NoError(t, err)
			assert.Equal(t, "X", got)
		})
	}
}

func TestNormalizeID_OtherShapes(t *testing.T) {
	oid := primitive.NewObjectID()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"object id", oid, oid.Hex()},
		{"object id pointer", &oid, oid.Hex()},
		{"bson.M", bson.M{"_id": oid}, oid.Hex()},
		{"nested object", map[string]any{"_id": map[string]any{"_id": "abc"}}, "abc"},
		{"extended json", `{"$oid":"` + oid.Hex() + `"}`, oid.Hex()},
		{"raw json string", json.RawMessage(`"abc"`), "abc"},
		{"raw json object", json.RawMessage(`{"_id":"abc"}`), "abc"},
		{"padded string", "  abc ", "abc"},
		{"double encoded", `"abc"`, "abc"},
		{"number fallback", 42, "42"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeID(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeID_Rejects(t *testing.T) {
	var nilOID *primitive.ObjectID
	inputs := map[string]any{
		"nil":             nil,
		"empty string":    "",
		"js object text":  "[object Object]",
		"object no _id":   map[string]any{"id": "X"},
		"broken json":     `{"_id":`,
		"zero object id":  primitive.NilObjectID,
		"nil oid pointer": nilOID,
		"empty _id":       map[string]any{"_id": ""},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeID(in)
			assert.ErrorIs(t, err, ErrInvalidIdentifier)
		})
	}
}

func TestParseObjectID(t *testing.T) {
	oid := primitive.NewObjectID()

	got, err := ParseObjectID(`{"_id":"` + oid.Hex() + `"}`)
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	_, err = ParseObjectID("not-hex")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}
