package ingest_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/dispatch/internal/ingest"
)

func TestNewChunker(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := ingest.NewChunker()
		assert.Equal(t, ingest.DefaultChunkSize, c.Size())
		assert.Equal(t, ingest.DefaultChunkOverlap, c.Overlap())
	})

	t.Run("overlap exceeds size", func(t *testing.T) {
		c := ingest.NewChunker(ingest.WithChunkSize(100), ingest.WithOverlap(150))
		assert.Equal(t, 25, c.Overlap())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		c := ingest.NewChunker(ingest.WithChunkSize(0), ingest.WithOverlap(-1))
		assert.Equal(t, ingest.DefaultChunkSize, c.Size())
		assert.Equal(t, ingest.DefaultChunkOverlap, c.Overlap())
	})
}

func TestSplit(t *testing.T) {
	c := ingest.NewChunker(ingest.WithChunkSize(10), ingest.WithOverlap(4))

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, c.Split("   \n\t"))
	})

	t.Run("shorter than chunk", func(t *testing.T) {
		assert.Equal(t, []string{"short"}, c.Split("short"))
	})

	t.Run("overlapping windows", func(t *testing.T) {
		got := c.Split("abcdefghijklmnopqrst")
		assert.Equal(t, []string{"abcdefghij", "ghijklmnop", "mnopqrst"}, got)
	})

	t.Run("multibyte runes stay whole", func(t *testing.T) {
		text := strings.Repeat("é", 25)
		chunks := c.Split(text)
		require.NotEmpty(t, chunks)
		for _, ch := range chunks {
			assert.LessOrEqual(t, len([]rune(ch)), 10)
			assert.Equal(t, strings.Repeat("é", len([]rune(ch))), ch)
		}
	})
}
