// Package relation provides the in-memory table that flows between
// partsync's operators, and the operators themselves.
//
// A Relation is an ordered set of named, typed columns and an ordered list of
// rows. Cells are nil (null), string, int64, float64, bool or time.Time.
//
// # Copying and mutating operators
//
// Package-level functions never modify their inputs and return a new
// Relation:
//
//	sel, err := relation.Select(r, []string{"id", "amount"})
//	joined, err := relation.Join(orders, customers, relation.JoinSpec{On: []string{"customer_id"}})
//	totals, err := relation.GroupBy(joined, []string{"region"}, []string{"amount"}, relation.ReduceSum)
//
// Methods named LoadConst and DerivePartitionKeys modify the receiver in
// place and return it:
//
//	r.LoadConst("source", "billing")
//	_, err := r.DerivePartitionKeys("created_at", relation.DefaultPartitionMapping())
//
// # Errors
//
// Every operator returns a *Error whose Code identifies the failure. Use
// errors.Is with the Err* sentinels:
//
//	if errors.Is(err, relation.ErrUnknownColumn) {
//	    ...
//	}
package relation
