package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/weibo-relay/internal/relay"
)

func TestTableName(t *testing.T) {
	t.Parallel()

	name, err := TableName("")
	require.NoError(t, err)
	require.Equal(t, DefaultTable, name)

	name, err = TableName("seen_items")
	require.NoError(t, err)
	require.Equal(t, "seen_items", name)

	for _, bad := range []string{"1abc", "weibo; DROP TABLE x", "a-b"} {
		_, err := TableName(bad)
		require.Error(t, err, bad)
	}
}

func TestWrapKeepsBothErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := Wrap("mark seen", cause)
	require.ErrorIs(t, err, relay.ErrStorage)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "mark seen")
}
