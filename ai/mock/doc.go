// Package mock provides deterministic in-memory implementations of the ai
// interfaces for tests.
package mock
