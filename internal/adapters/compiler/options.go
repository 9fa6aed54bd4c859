package compiler

import (
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/notify"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/process"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
)

// Option applies a configuration option to the Compiler.
type Option func(*Compiler)

// WithLibsDir sets the directory holding robocode.jar and clojure.jar.
func WithLibsDir(dir string) Option {
	return func(c *Compiler) {
		if dir != "" {
			c.libsDir = dir
		}
	}
}

// WithJavac sets the Java compiler binary.
func WithJavac(bin string) Option {
	return func(c *Compiler) {
		if bin != "" {
			c.javac = bin
		}
	}
}

// WithJava sets the Java launcher used for Clojure compilation.
func WithJava(bin string) Option {
	return func(c *Compiler) {
		if bin != "" {
			c.java = bin
		}
	}
}

// WithJavacFlags replaces the flags passed to javac before the source file.
func WithJavacFlags(flags ...string) Option {
	return func(c *Compiler) {
		c.javacFlags = append([]string(nil), flags...)
	}
}

// WithEngineVersion sets the engine version written to metadata sidecars.
func WithEngineVersion(v string) Option {
	return func(c *Compiler) {
		c.engineVersion = v
	}
}

// WithTimeout bounds each compilation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Compiler) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithNotifier sets where compile failures are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Compiler) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithRunner substitutes the process runner, mainly for tests.
func WithRunner(r process.Runner) Option {
	return func(c *Compiler) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithLogger sets the compiler logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.log = l
		}
	}
}
