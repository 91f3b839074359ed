// Package runquery describes filters over stored runs and compiles them to
// parameterized SQLite.
//
// A filter is a tree of predicates over the columns of the runs table:
//
//	runquery.And{Predicates: []runquery.Predicate{
//		runquery.Equals{Column: runquery.ColModelName, Value: "dimer"},
//		runquery.IsNull{Column: runquery.ColStopReason},
//	}}
//
// compiles to
//
//	SELECT <columns> FROM runs
//	WHERE model_name = ? AND stop_reason IS NULL
//	ORDER BY seq ASC, id COLLATE BINARY ASC
//
// Values are always bound as parameters. Column names come from a fixed
// set and are checked before compilation, so they are the only text
// interpolated into the statement. Every compiled query is ordered by the
// run sequence number, so results never depend on SQLite's scan order.
package runquery
