package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIDateRange(t *testing.T) {
	t.Run("Should make the last day inclusive", func(t *testing.T) {
		dr, err := cliDateRange("2026-01-01", "2026-01-31")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), dr.To)
	})

	t.Run("Should reject reversed and malformed bounds", func(t *testing.T) {
		_, err := cliDateRange("2026-02-01", "2026-01-01")
		assert.Error(t, err)
		_, err = cliDateRange("yesterday", "")
		assert.ErrorContains(t, err, "--from")
	})
}

func TestCommands(t *testing.T) {
	t.Run("Should register every subcommand", func(t *testing.T) {
		names := map[string]bool{}
		for _, c := range rootCmd.Commands() {
			names[c.Name()] = true
		}
		assert.True(t, names["serve"])
		assert.True(t, names["ask"])
		assert.True(t, names["enrich"])
	})
}
