// Package mqtt wraps the paho client with topic-prefixed subscriptions,
// wildcard dispatch and TLS setup from a broker URL.
package mqtt
