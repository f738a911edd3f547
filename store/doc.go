// Package store defines the document store abstraction the pipeline drains.
//
// A DocumentStore supports three operations: batch fetch with optional
// filter and sort, upsert by id, and delete by id. Two implementations are
// provided: store/elastic talks to an Elasticsearch-compatible HTTP API, and
// store/local keeps documents in an embedded BadgerDB for deployments and
// tests that have no search cluster available.
package store
