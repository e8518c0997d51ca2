package ecosystem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames_SortedAndNonEmpty(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)

	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, strings.ToLower(names[i-1]), strings.ToLower(names[i]))
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	for _, name := range []string{"Python", "python", "PYTHON"} {
		text, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Contains(t, text, "__pycache__/")
	}
}

func TestLookup_AllNamesResolve(t *testing.T) {
	for _, name := range Names() {
		text, err := Lookup(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, text)
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("NotARealEcosystem")
	require.Error(t, err)

	var unknown *ErrUnknown
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "NotARealEcosystem", unknown.Name)
}
