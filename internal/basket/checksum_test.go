package basket_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basket-go/internal/basket"
)

func TestCanonicalize(t *testing.T) {
	t.Run("sorts keys at every depth and indents by four spaces", func(t *testing.T) {
		got, err := basket.Canonicalize([]byte(`{"b":1,"a":{"d":[1,2],"c":"x<y"}}`))
		require.NoError(t, err)

		want := "{\n" +
			"    \"a\": {\n" +
			"        \"c\": \"x<y\",\n" +
			"        \"d\": [\n" +
			"            1,\n" +
			"            2\n" +
			"        ]\n" +
			"    },\n" +
			"    \"b\": 1\n" +
			"}"
		assert.Equal(t, want, string(got))
	})

	t.Run("keeps number literals", func(t *testing.T) {
		got, err := basket.Canonicalize([]byte(`{"ratio": 1.50, "big": 12345678901234567890}`))
		require.NoError(t, err)
		assert.Contains(t, string(got), `"ratio": 1.50`)
		assert.Contains(t, string(got), `"big": 12345678901234567890`)
	})

	t.Run("rejects trailing data", func(t *testing.T) {
		_, err := basket.Canonicalize([]byte(`{} {}`))
		assert.ErrorIs(t, err, basket.ErrMalformedDocument)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := basket.Canonicalize([]byte(`{"a":`))
		assert.ErrorIs(t, err, basket.ErrMalformedDocument)
	})
}

func TestComputeChecksum_Deterministic(t *testing.T) {
	first, err := basket.ParseDocument([]byte(`{"Command": {"b": {"y": 2, "x": 1}, "a": {}}, "TimePeriod": {}}`))
	require.NoError(t, err)
	second, err := basket.ParseDocument([]byte(`{"TimePeriod": {}, "Command": {"a": {}, "b": {"x": 1, "y": 2}}}`))
	require.NoError(t, err)

	c1, err := first.Canonical()
	require.NoError(t, err)
	c1again, err := first.Canonical()
	require.NoError(t, err)
	c2, err := second.Canonical()
	require.NoError(t, err)

	assert.Equal(t, basket.ComputeChecksum(c1), basket.ComputeChecksum(c1again))
	assert.Equal(t, basket.ComputeChecksum(c1), basket.ComputeChecksum(c2))
	assert.Equal(t, string(c1), string(c2))
}

func TestChecksum_Forms(t *testing.T) {
	c := basket.ComputeChecksum([]byte("abc"))

	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", c.String())
	assert.Equal(t, "a9993e3", c.Short())
	assert.False(t, c.IsZero())
	assert.True(t, basket.Checksum{}.IsZero())

	parsed, err := basket.ParseChecksum(c.String())
	require.NoError(t, err)
	assert.Equal(t, c, parsed)

	for _, bad := range []string{"", "a9993e", "zz993e364706816aba3e25717850c26c9cd0d89d"} {
		_, err := basket.ParseChecksum(bad)
		assert.True(t, errors.Is(err, basket.ErrValidation), "ParseChecksum(%q) error = %v", bad, err)
	}
}
