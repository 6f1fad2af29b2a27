package config

import "io"

// SetOutput replaces the log destination of Logger
func (c *Logger) SetOutput(w io.Writer) {
	c.output = w
}
