package facet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "key:status", EncodeKey(" Status "))
	assert.Equal(t, "key:status=draft", EncodeValue("status", "Draft"))
	assert.Equal(t, "key:a%3Db=x%25y%3Dz", EncodeValue("a=b", "x%y=z"))
}

func TestDecode_EscapedLiterals(t *testing.T) {
	cases := map[string]NodeRef{
		EncodeValue("k", "%25"):   {Key: "k", ValuePath: "%25"},
		EncodeValue("k", "%3D"):   {Key: "k", ValuePath: "%3d"},
		EncodeValue("k", "100%"):  {Key: "k", ValuePath: "100%"},
		EncodeValue("k", "a=b/c"): {Key: "k", ValuePath: "a=b/c"},
		EncodeKey("50%=half"):     {Key: "50%=half"},
	}
	for id, want := range cases {
		got, err := Decode(id)
		require.NoError(t, err, id)
		assert.Equal(t, want, got, id)
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, id := range []string{
		"",
		"status",
		"root",
		"key:",
		"key:=draft",
		"key:status=",
		"key:status=a=b",
		"key:sta%tus",
		"key:status=%2",
	} {
		_, err := Decode(id)
		assert.ErrorIs(t, err, ErrInvalidID, id)
		assert.False(t, IsValidID(id), id)
	}
}

func TestNormalizeID(t *testing.T) {
	got, err := NormalizeID("key:Status=Work/ Project ")
	require.NoError(t, err)
	assert.Equal(t, "key:status=work/project", got)

	got, err = NormalizeID("key:Status")
	require.NoError(t, err)
	assert.Equal(t, "key:status", got)

	got, err = NormalizeID("key:Status=/ /")
	require.NoError(t, err)
	assert.Equal(t, "key:status", got, "a value that normalizes away falls back to the key")

	got, err = NormalizeID(RootID)
	require.NoError(t, err)
	assert.Equal(t, RootID, got)

	_, err = NormalizeID("key: ")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestNodeRef_ID(t *testing.T) {
	assert.Equal(t, "key:a", NodeRef{Key: "a"}.ID())
	assert.Equal(t, "key:a=b/c", NodeRef{Key: "a", ValuePath: "b/c"}.ID())
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	segment := rapid.StringMatching(`[A-Za-z0-9%= ]{0,6}(/[A-Za-z0-9%= ]{0,6}){0,3}`)
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[A-Za-z%=_ ]{0,8}`).Draw(t, "key")
		value := segment.Draw(t, "value")
		if NormalizeKey(key) == "" || NormalizeValuePath(value) == "" {
			return
		}

		ref, err := Decode(EncodeValue(key, value))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ref.Key != NormalizeKey(key) || ref.ValuePath != NormalizeValuePath(value) {
			t.Fatalf("round trip mismatch: %+v for key=%q value=%q", ref, key, value)
		}

		normalized, err := NormalizeID(EncodeValue(key, value))
		if err != nil || normalized != EncodeValue(key, value) {
			t.Fatalf("encoded ids must already be normalized: %q %v", normalized, err)
		}
	})
}
