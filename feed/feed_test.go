package feed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledgerline/reconcile-engine/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TRUSTED SENDER FILTER TESTS
// =============================================================================

func TestTrustFilter_DropsUnknownSenders(t *testing.T) {
	msgs := []feed.Message{
		{Sender: "UPI@phonepe.com", Body: "Rs 5000 credited"},
		{Sender: "spam@lottery.example", Body: "you won"},
		{Sender: "noreply@hdfcbank.com", Body: "Rs 3000 credited"},
	}

	out := feed.TrustFilter(msgs, feed.DefaultTrustedSenders)

	require.Len(t, out, 2)
	assert.Equal(t, "Rs 5000 credited", out[0].Body)
	assert.Equal(t, "Rs 3000 credited", out[1].Body)
}

func TestTrustFilter_NoSenderMetadataPasses(t *testing.T) {
	// Sources without sender attribution (file drops) are trusted as a
	// whole.
	msgs := []feed.Message{{Body: "Rs 5000 credited"}}

	out := feed.TrustFilter(msgs, feed.DefaultTrustedSenders)

	assert.Len(t, out, 1)
}

func TestTrustFilter_EmptyTrustListPassesEverything(t *testing.T) {
	msgs := []feed.Message{{Sender: "anyone@anywhere", Body: "hi"}}

	out := feed.TrustFilter(msgs, nil)

	assert.Len(t, out, 1)
}

// =============================================================================
// STATIC SOURCE TESTS
// =============================================================================

func TestStaticSource_DrainsOnce(t *testing.T) {
	src := feed.NewStaticSource(feed.Message{Body: "one"}, feed.Message{Body: "two"})
	ctx := context.Background()

	first, err := src.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := src.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, second, "already-fetched messages must not repeat")
}

func TestStaticSource_PushAfterDrain(t *testing.T) {
	src := feed.NewStaticSource(feed.Message{Body: "one"})
	ctx := context.Background()

	_, err := src.Fetch(ctx)
	require.NoError(t, err)

	src.Push(feed.Message{Body: "two"})

	out, err := src.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "two", out[0].Body)
}

// =============================================================================
// DIR SOURCE TESTS
// =============================================================================

func TestDirSource_ReadsEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Rs 5000 credited"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("Rs 3000 credited"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	src := feed.NewDirSource(dir)
	ctx := context.Background()

	first, err := src.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 2, "only .txt files are notification bodies")

	// A repeated fetch sees nothing new.
	second, err := src.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, second)

	// A newly dropped file is picked up.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("Rs 100 credited"), 0o644))
	third, err := src.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "Rs 100 credited", third[0].Body)
}

func TestDirSource_MissingDirectory(t *testing.T) {
	src := feed.NewDirSource(filepath.Join(t.TempDir(), "nope"))

	_, err := src.Fetch(context.Background())

	assert.Error(t, err)
}
