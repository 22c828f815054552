package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bookdesk/models"
)

func TestCache(t *testing.T) {
	t.Run("Should normalize keys", func(t *testing.T) {
		assert.Equal(t, "openlibrary:the left hand of darkness", Key("openlibrary", "  The Left   Hand of DARKNESS "))
	})

	t.Run("Should return stored records by value", func(t *testing.T) {
		c := New(time.Minute)
		c.PutBook("k", models.BookRecord{Title: "Dune", Author: "Frank Herbert"})

		got, ok := c.Book("k")
		assert.True(t, ok)
		got.Author = "changed"

		again, _ := c.Book("k")
		assert.Equal(t, "Frank Herbert", again.Author)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("Should miss unknown and expired keys", func(t *testing.T) {
		c := New(20 * time.Millisecond)
		_, ok := c.Book("missing")
		assert.False(t, ok)

		c.PutBook("short", models.BookRecord{Title: "Emma"})
		assert.Eventually(t, func() bool {
			_, ok := c.Book("short")
			return !ok
		}, time.Second, 10*time.Millisecond)
	})
}
