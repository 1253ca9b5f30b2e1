// Package storage holds helpers shared by the seen-item store backends.
package storage

import (
	"fmt"
	"regexp"

	"github.com/JakeFAU/weibo-relay/internal/relay"
)

// DefaultTable matches the table in existing weibo.db files.
const DefaultTable = "weibo"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// TableName validates a configured table name, defaulting when empty.
func TableName(table string) (string, error) {
	if table == "" {
		return DefaultTable, nil
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Wrap tags a backend error as a storage failure.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, relay.ErrStorage, err)
}
