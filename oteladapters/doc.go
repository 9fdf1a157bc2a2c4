// Package oteladapters provides OpenTelemetry implementations of the domainevents observability interfaces.
//
// Use them with domainevents.WithMetrics, domainevents.WithTracing and domainevents.WithContextualLogger,
// or with the matching options of postgresuow.
package oteladapters
