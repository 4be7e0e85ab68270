package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageItem struct {
	ID        string
	ChangedAt time.Time
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 28, 12, 0, 0, 123456789, time.UTC)

	encoded := EncodeCursor("item-42", ts)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "item-42", decoded.LastID)
	assert.True(t, decoded.Timestamp.Equal(ts))
}

func TestDecodeCursor_Empty(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, cursor := range []string{"not base64!", "bm9waXBl", "aXRlbXxub3RhdGltZQ=="} {
		_, err := DecodeCursor(cursor)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	}
}

func TestCreateNextCursor(t *testing.T) {
	ts := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	items := []pageItem{
		{ID: "a", ChangedAt: ts},
		{ID: "b", ChangedAt: ts.Add(-time.Second)},
		{ID: "c", ChangedAt: ts.Add(-2 * time.Second)},
	}
	getID := func(i pageItem) string { return i.ID }
	getTS := func(i pageItem) time.Time { return i.ChangedAt }

	t.Run("full page points at its last item", func(t *testing.T) {
		cursor := CreateNextCursor(items, 3, getID, getTS)
		require.NotEmpty(t, cursor)

		decoded, err := DecodeCursor(cursor)
		require.NoError(t, err)
		assert.Equal(t, "c", decoded.LastID)
		assert.True(t, decoded.Timestamp.Equal(items[2].ChangedAt))
	})

	t.Run("short page yields no cursor", func(t *testing.T) {
		assert.Empty(t, CreateNextCursor(items[:2], 3, getID, getTS))
	})

	t.Run("empty page yields no cursor", func(t *testing.T) {
		assert.Empty(t, CreateNextCursor(nil, 3, getID, getTS))
	})
}
