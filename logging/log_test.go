package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("Levels parse from their names", testParseLevel)
	t.Run("Named loggers build a dotted hierarchy", testNamed)
	t.Run("Clones keep their own level", testCloneLevel)
}

func testParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": DebugLevel,
		"info":  InfoLevel,
		"warn":  WarnLevel,
		"error": ErrorLevel,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}

func testNamed(t *testing.T) {
	root := NewTestLogger().Named("points")
	require.Equal(t, "points", root.GetName())

	child := root.Named("depth")
	require.Equal(t, "points.depth", child.GetName())
	// The parent keeps its own name.
	require.Equal(t, "points", root.GetName())
}

func testCloneLevel(t *testing.T) {
	log := NewTestLogger()
	clone := log.Clone()
	clone.SetLevel(ErrorLevel)

	require.Equal(t, ErrorLevel, clone.GetLevel())
	require.Equal(t, DebugLevel, log.GetLevel())
	require.False(t, clone.IsDebug())
	require.True(t, log.IsDebug())
}
