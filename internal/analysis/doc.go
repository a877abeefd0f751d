// Package analysis profiles a loaded table.
//
// Every statistic follows the same null contract: a first pass collects the
// non-missing values of a column (table.Column.Present), a second pass derives
// the statistic from that collection only. Missing cells never count as zero,
// never enter a denominator and never receive a derived value of their own.
// Missing percentages are the one exception, computed against all rows.
package analysis
