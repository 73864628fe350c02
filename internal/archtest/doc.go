// Package archtest holds source-level checks over internal/ that run with
// the regular test suite.
package archtest
