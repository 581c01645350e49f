// Package errreport collects per-source bad-input reports and writes them as
// meta/<source>.errors, one "path|message" line per problem, for the issue
// sync job that notifies repository authors.
package errreport
