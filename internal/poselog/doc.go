// Package poselog extracts localization samples from free-text robot logs.
//
// A pose line carries a timestamp, an optional localization state, an integer
// type code and a parenthesised tuple of at least six numbers:
//
//	2024-05-01 12:00:00,125 [loc] Location_state = RealTimeLocation type = 20 (1.5 2.0 0 0 0 0.78)
//	2024-05-01 12:00:00,250 type = 20 ( 1.6 2.0 0 0 0 0.79 )
//
// Each accepted line variant has its own parse function. Lines that do not
// match any variant are skipped; files that cannot be read are skipped whole.
// Nothing in this package returns an error for bad input data, only for an
// unreadable scan root.
package poselog
