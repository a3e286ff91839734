// Package cli is the interactive front end of the gophauth client.
//
// It runs a small REPL on stdin. Passwords are read from the terminal
// without echo and wiped after use. Every command goes through a
// client.Client, so the REPL itself has no knowledge of HTTP.
package cli
