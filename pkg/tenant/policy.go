package tenant

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// BindPrincipal scopes a transaction to a principal by setting the
// app.principal_id GUC that get_active_organization_id() reads. SET LOCAL
// semantics: the binding dies with the transaction, so pooled connections
// never leak a principal across requests.
//
// Every DAL transaction touching row-scoped tables must be bound before its
// first statement, otherwise the policies see NULL and return no rows.
func BindPrincipal(ctx context.Context, tx *sql.Tx, principalID int64) error {
	_, err := tx.ExecContext(ctx,
		`SELECT set_config('app.principal_id', $1, true)`,
		strconv.FormatInt(principalID, 10))
	if err != nil {
		return fmt.Errorf("failed to bind principal: %w", err)
	}
	return nil
}
