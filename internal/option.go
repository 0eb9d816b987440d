package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStdio replaces the process streams. Protocol traffic uses in and out;
// logs go to errOut.
func WithStdio(in io.Reader, out, errOut io.Writer) Option {
	return func(a *application) {
		a.stdin = in
		a.stdout = out
		a.stderr = errOut
	}
}
