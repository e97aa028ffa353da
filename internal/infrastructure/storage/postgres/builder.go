package postgres

import sq "github.com/Masterminds/squirrel"

// psql builds statements with PostgreSQL placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Builder returns the shared statement builder.
func Builder() sq.StatementBuilderType {
	return psql
}
