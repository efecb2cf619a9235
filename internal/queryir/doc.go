// Package queryir is the query representation used to read the
// evaluation journal.
//
// A query is a Select over one journal table: the columns to return, a
// filter built from Equals and And predicates, a sort order and an
// optional limit. Backends (see package querysql) compile it to their
// own query language. Keeping the representation separate lets callers
// build filters from user input (ParseWhere) and check them against the
// journal schema (Validate) before anything reaches the database.
//
// Query and Predicate are sealed: only types in this package implement
// them, so backends can switch over every case.
//
//	switch q := query.(type) {
//	case Select:
//	    // compile select
//	case *Select:
//	    // same, by pointer
//	}
//
// Literal values are ir.Value. Journal columns hold text and integers,
// so only String and Int compare; Bool, List and Map are rejected by
// Validate.
package queryir
