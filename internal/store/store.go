package store

import (
	sq "github.com/Masterminds/squirrel"
)

// psql is the statement builder all repositories share; postgres wants
// dollar placeholders.
func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}
