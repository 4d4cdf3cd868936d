// Package records stores a collection of JSON records as a single document
// file in HDFS.
//
// HDFS only offers whole-file create and append, so Update and Delete are
// read-modify-write cycles. Each cycle reads the document together with its
// version token and rewrites it with webhdfs.PutOptions.IfETagMatch; when
// another writer got there first the cycle is retried with backoff, and
// ErrConflict is returned once the retry budget is spent.
package records
