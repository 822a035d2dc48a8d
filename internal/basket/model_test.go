package basket_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basket-go/internal/basket"
)

func TestSelection_JSON(t *testing.T) {
	var c basket.Coverage
	require.NoError(t, json.Unmarshal([]byte(`{"HostTemplate": true, "Command": ["b", "a", "b"]}`), &c))

	assert.True(t, c["HostTemplate"].All)
	assert.Equal(t, []string{"a", "b"}, c["Command"].Names)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Command": ["a", "b"], "HostTemplate": true}`, string(out))

	empty, err := json.Marshal(basket.NamedObjects())
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(empty))

	var sel basket.Selection
	assert.Error(t, json.Unmarshal([]byte(`false`), &sel))
	assert.Error(t, json.Unmarshal([]byte(`"Command"`), &sel))
}

func TestCoverage_AddNamesIsMonotonic(t *testing.T) {
	c := basket.Coverage{"Command": basket.NamedObjects("check_http")}

	assert.True(t, c.AddNames("Command", []string{"check_disk", "check_http"}))
	assert.Equal(t, []string{"check_disk", "check_http"}, c["Command"].Names)

	assert.True(t, c.AddNames("Command", []string{"check_ping", "check_disk"}))
	assert.Equal(t, []string{"check_disk", "check_http", "check_ping"}, c["Command"].Names)

	assert.False(t, c.AddNames("Command", []string{"check_http"}), "re-adding covered names is a no-op")
	assert.False(t, c.AddNames("Command", nil))

	c["HostTemplate"] = basket.AllObjects()
	assert.False(t, c.AddNames("HostTemplate", []string{"generic-host"}))
	assert.True(t, c["HostTemplate"].All)
	assert.Empty(t, c["HostTemplate"].Names)

	assert.True(t, c.AddNames("User", []string{"alice"}), "new type is added")
	assert.Equal(t, []string{"alice"}, c["User"].Names)
}

func TestCoverage_Validate(t *testing.T) {
	assert.NoError(t, basket.Coverage{"HostTemplate": basket.AllObjects(), "Datafield": basket.AllObjects()}.Validate())
	assert.ErrorIs(t, basket.Coverage{"HostTempl": basket.AllObjects()}.Validate(), basket.ErrValidation)
}

func TestCoverage_TypesInRestoreOrder(t *testing.T) {
	c := basket.Coverage{
		"HostTemplate": basket.AllObjects(),
		"TimePeriod":   basket.AllObjects(),
		"Datafield":    basket.AllObjects(),
		"Command":      basket.AllObjects(),
	}
	assert.Equal(t, []string{"TimePeriod", "Command", "HostTemplate"}, c.Types())
}

func TestCoverage_CloneIsDeep(t *testing.T) {
	c := basket.Coverage{"Command": basket.NamedObjects("a")}
	clone := c.Clone()
	clone.AddNames("Command", []string{"b"})

	assert.Equal(t, []string{"a"}, c["Command"].Names)
}

func TestParseDocument(t *testing.T) {
	t.Run("accepts type to name to payload", func(t *testing.T) {
		doc, err := basket.ParseDocument([]byte(`{"Command": {"b": {}, "a": {"x": 1}}, "TimePeriod": null}`))
		require.NoError(t, err)

		assert.Equal(t, []string{"TimePeriod", "Command"}, doc.Types())
		assert.Equal(t, []string{"a", "b"}, doc.Names("Command"))
		assert.Empty(t, doc["TimePeriod"])
	})

	malformed := map[string]string{
		"not json":            `not-json`,
		"json string":         `"not-json"`,
		"top level array":     `[]`,
		"top level null":      `null`,
		"type is a list":      `{"Command": []}`,
		"payload is a string": `{"Command": {"a": "x"}}`,
		"payload is null":     `{"Command": {"a": null}}`,
	}
	for name, raw := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := basket.ParseDocument([]byte(raw))
			assert.ErrorIs(t, err, basket.ErrMalformedDocument)
		})
	}
}
