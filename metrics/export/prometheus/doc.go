// Package prometheus renders clinicauth engine metrics in the Prometheus text
// exposition format and serves them over HTTP.
package prometheus
