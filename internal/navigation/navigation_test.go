package navigation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	h := NewHistory(RouteHome)
	require.Equal(t, RouteHome, h.Current())

	h.Push(RouteLogin)
	h.Push("/documents/1")

	require.Equal(t, "/documents/1", h.Current())
	require.Equal(t, []string{RouteHome, RouteLogin, "/documents/1"}, h.Visited())
}

func TestDeferred(t *testing.T) {
	h := NewHistory("/documents")
	d := NewDeferred(h)

	d.Push(RouteLogin)
	d.Push(RouteHome)

	require.Equal(t, "/documents", d.Current(), "navigation applied only on flush")
	require.Equal(t, []string{RouteLogin, RouteHome}, d.Pending())

	require.Equal(t, RouteHome, d.Flush())
	require.Equal(t, []string{"/documents", RouteLogin, RouteHome}, h.Visited())
	require.Empty(t, d.Pending())

	require.Equal(t, RouteHome, d.Flush(), "nothing queued")
}
