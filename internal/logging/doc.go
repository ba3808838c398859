// Package logging provides opt-in file-based logging with rotation for
// fireworm. With --debug, JSON logs are written to ~/.fireworm/logs/ and
// can be read back with `fireworm logs`.
//
// Without --debug, logging is minimal and goes to stderr only.
package logging
