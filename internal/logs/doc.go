// Package logs provides file tailing and offset helpers for the daemon log.
//
// It backs the LogTail RPC and `tubefetch logs --follow`: a negative offset
// returns the last N lines, a non-negative offset resumes where the previous
// call stopped, and follow mode polls until new lines arrive or the wait
// elapses.
package logs
