// Package secfs exposes the modem credential store as a small virtual
// filesystem.
//
// Credentials are managed with the AT%CMNG command. Each credential type
// is a folder ("ca", "pub-cert", "priv-cert", "psk", "identity",
// "pub-key") and each security tag stored under that type is a file named
// by the decimal tag, e.g. "/ca/16842753".
//
// Every operation opens a fresh AT socket and closes it when done, nothing
// is cached between calls except the content of an open File after its
// first read. Failures are reported as *Error carrying a POSIX errno.
package secfs
