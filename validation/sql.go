package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// SQLError explains why a generated statement was refused.
type SQLError struct {
	Reason  string
	Keyword string
}

func (e *SQLError) Error() string {
	if e.Keyword != "" {
		return fmt.Sprintf("sql rejected: %s (%s)", e.Reason, e.Keyword)
	}
	return "sql rejected: " + e.Reason
}

// DeniedKeywords may not appear as whole words in a generated statement. The
// last five close SQL Server specific write paths (SELECT ... INTO, EXEC).
var DeniedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE", "MERGE",
	"EXEC", "EXECUTE", "GRANT", "REVOKE", "INTO",
}

var (
	deniedPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(DeniedKeywords, "|") + `)\b`)
	leadPattern   = regexp.MustCompile(`(?i)^(SELECT|WITH)\b`)
)

// ValidateSQL accepts a single read-only statement: it must start with SELECT
// or WITH, contain no ';' and no denied keyword.
func ValidateSQL(statement string) error {
	s := strings.TrimSpace(statement)
	if s == "" {
		return &SQLError{Reason: "empty statement"}
	}
	if !leadPattern.MatchString(s) {
		return &SQLError{Reason: "statement must start with SELECT or WITH"}
	}
	if strings.Contains(s, ";") {
		return &SQLError{Reason: "multiple statements are not allowed"}
	}
	if m := deniedPattern.FindString(s); m != "" {
		return &SQLError{Reason: "statement contains a write keyword", Keyword: strings.ToUpper(m)}
	}
	return nil
}
