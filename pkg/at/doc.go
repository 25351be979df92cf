// Package at provides access to a modem AT command channel.
package at

// The channel is modelled after the modem's AT socket: a Socket is opened
// per exchange, a command is sent as text and the raw response text is
// received, including the final result code ("OK", "ERROR" or
// "+CME ERROR: <n>"). Interpreting the response is left to the caller,
// helpers in this package cover the common parts of that.
