package orm

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKey(t *testing.T) {
	id := uuid.MustParse("6f1b2c1e-8d4a-4b7e-9a55-0c1d2e3f4a5b")
	title := "Hard Times"

	cases := []struct {
		model string
		pk    any
		want  string
	}{
		{"book", "Oliver Twist", "book_%&_Oliver Twist"},
		{"book", 42, "book_%&_42"},
		{"book", int64(-7), "book_%&_-7"},
		{"book", uint8(7), "book_%&_7"},
		{"book", &title, "book_%&_Hard Times"},
		{"user", id, "user_%&_6f1b2c1e-8d4a-4b7e-9a55-0c1d2e3f4a5b"},
		{"book_author", "x_%&_y", "book_author_%&_x_%&_y"},
	}
	for _, c := range cases {
		key, err := EncodeKey(c.model, c.pk)
		require.NoError(t, err)
		assert.Equal(t, c.want, key)
	}
}

func TestEncodeKeyErrors(t *testing.T) {
	_, err := EncodeKey("book", "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = EncodeKey("book", nil)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = EncodeKey("book", 1.5)
	assert.ErrorIs(t, err, ErrInvalidKey)

	var missing *string
	_, err = EncodeKey("book", missing)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = EncodeKey("", "x")
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = EncodeKey("bo%ok", "x")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestKeysDoNotCollide(t *testing.T) {
	a, err := EncodeKey("x_", "1")
	require.NoError(t, err)
	b, err := EncodeKey("x", "_1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.False(t, strings.HasPrefix(a, keyPrefix("x")))
	assert.False(t, strings.HasPrefix(b, keyPrefix("x_")))
	assert.False(t, strings.HasPrefix(lockPrefix+a, keyPrefix("x_")))
}
