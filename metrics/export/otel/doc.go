// Package otel bridges clinicauth engine metrics to OpenTelemetry observable
// instruments read on each collection.
package otel
