package gateway

import (
	"context"

	"github.com/vegasq/partsync/relation"
)

// Gateway executes a query and returns its result set.
//
// database selects the schema the query resolves unqualified names in; an
// empty database uses the connection default. params may be nil, in which
// case the query is sent unchanged.
type Gateway interface {
	Execute(ctx context.Context, query, database string, params map[string]interface{}) (*relation.Relation, error)
}
