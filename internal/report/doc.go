// Package report summarizes a workload run and stores the summary as JSON,
// on disk or in S3.
package report
