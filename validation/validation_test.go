package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSQL(t *testing.T) {
	t.Run("Should accept read-only statements", func(t *testing.T) {
		for _, stmt := range []string{
			"SELECT title, price FROM book",
			"  select count(*) from orders where status = 'Delivered'",
			"WITH sold AS (SELECT book_id, SUM(quantity) q FROM order_item GROUP BY book_id) SELECT * FROM sold",
			"SELECT updated_at, created_at, deleted_flag FROM book",
		} {
			assert.NoError(t, ValidateSQL(stmt), stmt)
		}
	})

	t.Run("Should reject statements that do not start with SELECT or WITH", func(t *testing.T) {
		err := ValidateSQL("DELETE FROM book")
		var sqlErr *SQLError
		require.True(t, errors.As(err, &sqlErr))
		assert.Contains(t, sqlErr.Reason, "SELECT or WITH")
		assert.Error(t, ValidateSQL("   "))
		assert.Error(t, ValidateSQL("SELECTION FROM book"))
	})

	t.Run("Should reject stacked statements", func(t *testing.T) {
		err := ValidateSQL("SELECT 1; SELECT 2")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "multiple statements")
	})

	t.Run("Should reject write keywords anywhere as whole words", func(t *testing.T) {
		cases := map[string]string{
			"SELECT * INTO backup FROM book":              "INTO",
			"WITH x AS (SELECT 1) UPDATE book SET price=0": "UPDATE",
			"SELECT * FROM book -- drop later":             "DROP",
			"SELECT 1 UNION ALL SELECT 1 EXEC sp_who":      "EXEC",
		}
		for stmt, keyword := range cases {
			var sqlErr *SQLError
			require.True(t, errors.As(ValidateSQL(stmt), &sqlErr), stmt)
			assert.Equal(t, keyword, sqlErr.Keyword, stmt)
		}
	})
}

func TestIsValidPrompt(t *testing.T) {
	t.Run("Should accept questions and identifiers", func(t *testing.T) {
		for _, p := range []string{
			"What was revenue last month?",
			"Which books are low on stock",
			"#100",
			"978-0441013593",
			"INV-1001",
		} {
			assert.True(t, IsValidPrompt(p), p)
		}
	})

	t.Run("Should reject noise", func(t *testing.T) {
		for _, p := range []string{
			"",
			"   ",
			"a",
			"!!!??",
			"aaaaaa",
			"heeeeeello there",
			"asdfgh",
			"12",
			strings.Repeat("book ", 1000),
		} {
			assert.False(t, IsValidPrompt(p), p)
		}
	})
}
