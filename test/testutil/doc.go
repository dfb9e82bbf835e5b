// Package testutil provides shared helpers for integration tests.
//
// It contains setup code that joins several ranks over a real NATS server,
// waiters over node states, and assertions over the content assignment a job
// produced.
//
// Note: For NATS server setup, use the github.com/arloliu/scenepart/testing
// package. This package builds multi-rank scenarios on top of it.
package testutil
