package aptcore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	groups := sampleGroups()

	t.Run("case-insensitive exact alias", func(t *testing.T) {
		upper, err := Resolve(groups, "APT16")
		require.NoError(t, err)
		lower, err := Resolve(groups, "apt16")
		require.NoError(t, err)
		assert.Equal(t, upper, lower)
		assert.Equal(t, "g1", lower.ID)
	})

	t.Run("secondary alias", func(t *testing.T) {
		group, err := Resolve(groups, "svcmedia")
		require.NoError(t, err)
		assert.Equal(t, "APT16", group.Name)
	})

	t.Run("substrings do not resolve", func(t *testing.T) {
		_, err := Resolve(groups, "SVC")
		assert.True(t, errors.Is(err, ErrGroupNotFound))
	})

	t.Run("names without a matching alias do not resolve", func(t *testing.T) {
		_, err := Resolve(groups, "FIN7")
		assert.True(t, errors.Is(err, ErrGroupNotFound))
	})

	t.Run("unknown alias", func(t *testing.T) {
		_, err := Resolve(groups, "UNKNOWNX")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrGroupNotFound))
		assert.Equal(t, "[MITRE]: UNKNOWNX: group not found", err.Error())
	})

	t.Run("first match wins", func(t *testing.T) {
		dup := append(sampleGroups(), GroupRecord{ID: "g4", Name: "Copy", Aliases: []string{"svcmedia"}})
		group, err := Resolve(dup, "SVCMEDIA")
		require.NoError(t, err)
		assert.Equal(t, "g1", group.ID)
	})
}
