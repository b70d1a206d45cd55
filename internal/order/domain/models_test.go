package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(StatusDraft, StatusOpen))
	require.True(t, CanTransition(StatusDraft, StatusCancelled))
	require.True(t, CanTransition(StatusOpen, StatusCompleted))
	require.True(t, CanTransition(StatusOpen, StatusCancelled))

	require.False(t, CanTransition(StatusDraft, StatusCompleted))
	require.False(t, CanTransition(StatusOpen, StatusDraft))
	require.False(t, CanTransition(StatusCompleted, StatusOpen))
	require.False(t, CanTransition(StatusCancelled, StatusOpen))
	require.False(t, CanTransition(StatusDraft, StatusDraft))
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusDraft, StatusOpen, StatusCompleted, StatusCancelled} {
		require.True(t, ValidStatus(s))
	}
	require.False(t, ValidStatus("pending"))
	require.False(t, ValidStatus(""))
}
