// Package infra holds the adapters behind the core interfaces: zerolog
// logging, Sentry reporting, the Prometheus, InfluxDB and MQTT sinks, run
// stores and the weather CSV reader. Nothing in core imports from here.
package infra
