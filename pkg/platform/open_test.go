package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCommand(t *testing.T) {
	name, args, err := OpenCommand("darwin", "https://zoom.us/j/1")
	require.NoError(t, err)
	assert.Equal(t, "open", name)
	assert.Equal(t, []string{"https://zoom.us/j/1"}, args)

	name, _, err = OpenCommand("linux", "https://zoom.us/j/1")
	require.NoError(t, err)
	assert.Equal(t, "xdg-open", name)

	name, args, err = OpenCommand("windows", "https://zoom.us/j/1")
	require.NoError(t, err)
	assert.Equal(t, "rundll32", name)
	assert.Equal(t, "https://zoom.us/j/1", args[len(args)-1])

	_, _, err = OpenCommand("plan9", "x")
	assert.Error(t, err)
}
