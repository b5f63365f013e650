// Package testdoubles provides spies for the observability interfaces of statetable.
//
// The spies record every call behind a mutex so tests can assert on log messages, metric
// names and span lifecycles of code that runs concurrently.
package testdoubles
