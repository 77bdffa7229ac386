// Package query turns flat request parameters into filter descriptors and
// compiles them, together with the other list options, onto a bun select
// query. Filters on related tables are nested inside correlated EXISTS
// subqueries.
package query
