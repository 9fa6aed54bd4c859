// Package compiler turns competitor source into classes the battle engine
// can load. Every competitor shares one root directory laid out by package,
// which is also the engine's robot path.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/notify"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/process"
	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

const (
	defaultTimeout = 2 * time.Minute
	classesDir     = "classes"
	engineJar      = "robocode.jar"
	clojureJar     = "clojure.jar"
	clojureMain    = "clojure.lang.Compile"
)

var defaultJavacFlags = []string{"-deprecation", "-g", "-encoding", "UTF-8"}

// Status is the last compilation outcome for one registry key.
type Status struct {
	Key        string
	Language   model.Language
	Version    string
	Compiled   bool
	Error      string
	CompiledAt time.Time
}

// Compiler writes competitor sources under its root and compiles them in place.
type Compiler struct {
	root          string
	libsDir       string
	javac         string
	java          string
	javacFlags    []string
	engineVersion string
	timeout       time.Duration
	notifier      notify.Notifier
	runner        process.Runner
	log           logger.Logger

	mu       sync.Mutex // serialises writes and compiles under root
	verified map[string]bool
	statusMu sync.RWMutex
	status   map[string]Status
}

// New creates a Compiler rooted at root, creating the directory layout when needed.
func New(root string, opts ...Option) (*Compiler, error) {
	c := &Compiler{
		libsDir:    "libs",
		javac:      "javac",
		java:       "java",
		javacFlags: append([]string(nil), defaultJavacFlags...),
		timeout:    defaultTimeout,
		runner:     process.ExecRunner{},
		verified:   make(map[string]bool),
		status:     make(map[string]Status),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("compiler")
	}
	if c.notifier == nil {
		c.notifier = notify.NewLogNotifier(c.log)
	}

	var err error
	if c.root, err = filepath.Abs(root); err != nil {
		return nil, fmt.Errorf("%w: root %q: %w", ErrConfiguration, root, err)
	}
	if c.libsDir, err = filepath.Abs(c.libsDir); err != nil {
		return nil, fmt.Errorf("%w: libs %q: %w", ErrConfiguration, c.libsDir, err)
	}
	if err := os.MkdirAll(filepath.Join(c.root, classesDir), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return c, nil
}

// Root returns the absolute competitors root.
func (c *Compiler) Root() string { return c.root }

// Compile writes spec's source and metadata sidecar under the root and
// compiles it. A failed compilation is reported to the notifier and
// returned as a *CompileError.
func (c *Compiler) Compile(ctx context.Context, spec model.CompetitorSpec) error {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.compile(ctx, spec)
	c.setStatus(spec, err)
	metrics.RecordCompile(string(spec.Language), err == nil)
	metrics.RecordCompileLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordErrorByComponent("compiler", kindOf(err))
	}
	return err
}

func (c *Compiler) compile(ctx context.Context, spec model.CompetitorSpec) error {
	if spec.Language.Extension() == "" {
		return fmt.Errorf("%w: unknown language %q for %s", ErrConfiguration, spec.Language, spec.RepositoryKey)
	}
	if spec.ClassName == "" {
		return fmt.Errorf("%w: %s has no class name", ErrConfiguration, spec.RepositoryKey)
	}

	srcRel := spec.SourcePath()
	srcPath := filepath.Join(c.root, filepath.FromSlash(srcRel))
	if err := os.MkdirAll(filepath.Dir(srcPath), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := os.WriteFile(srcPath, []byte(spec.Source), 0o644); err != nil {
		return fmt.Errorf("%w: write source: %w", ErrConfiguration, err)
	}
	propsPath := filepath.Join(c.root, filepath.FromSlash(spec.PropertiesPath()))
	if err := writeSidecar(propsPath, spec, c.engineVersion); err != nil {
		return fmt.Errorf("%w: write sidecar: %w", ErrConfiguration, err)
	}

	bin, args := c.command(spec.Language, srcRel)
	if err := c.verify(ctx, bin); err != nil {
		return err
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.log.Info(ctx, "compiling competitor",
		logger.String("key", spec.RepositoryKey),
		logger.String("class", spec.QualifiedClassName()),
		logger.String("language", string(spec.Language)))

	res, err := c.runner.Run(runCtx, c.root, bin, args...)
	switch {
	case err != nil && ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		res.ExitCode = -1
		res.Output = append(res.Output, []byte(fmt.Sprintf("\ncompilation timed out after %s", c.timeout))...)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if res.ExitCode != 0 {
		cerr := &CompileError{
			Key:      spec.RepositoryKey,
			Language: string(spec.Language),
			ExitCode: res.ExitCode,
			Output:   string(res.Output),
		}
		c.log.Error(ctx, "compile failed",
			logger.String("key", spec.RepositoryKey),
			logger.Int("exit_code", res.ExitCode),
			logger.String("output", cerr.Output))
		subject := fmt.Sprintf("Robot %s (%s) didn't compile!", spec.Name, spec.RepositoryKey)
		if nerr := c.notifier.Notify(ctx, subject, cerr.Output); nerr != nil {
			c.log.Warn(ctx, "compile failure notice not delivered", logger.Error(nerr))
		}
		return cerr
	}

	if spec.Language == model.LanguageClojure {
		if err := c.relocateClasses(); err != nil {
			return fmt.Errorf("%w: relocate classes: %w", ErrConfiguration, err)
		}
	}

	c.log.Info(ctx, "compiled competitor",
		logger.String("key", spec.RepositoryKey),
		logger.Duration("took", res.Duration))
	return nil
}

// command builds the toolchain invocation for a source file relative to root.
func (c *Compiler) command(lang model.Language, srcRel string) (string, []string) {
	sep := string(os.PathListSeparator)
	engine := filepath.Join(c.libsDir, engineJar)

	if lang == model.LanguageClojure {
		cp := strings.Join([]string{engine, filepath.Join(c.libsDir, clojureJar), c.root}, sep)
		ns := strings.TrimSuffix(srcRel, path.Ext(srcRel))
		ns = strings.ReplaceAll(strings.ReplaceAll(ns, "/", "."), "_", "-")
		return c.java, []string{"-cp", cp, "-Dclojure.compile.path=" + classesDir, clojureMain, ns}
	}

	args := []string{"-classpath", engine + sep + c.root}
	args = append(args, c.javacFlags...)
	args = append(args, filepath.FromSlash(srcRel))
	return c.javac, args
}

// verify checks once per binary that the toolchain answers -version.
func (c *Compiler) verify(ctx context.Context, bin string) error {
	if c.verified[bin] {
		return nil
	}
	res, err := c.runner.Run(ctx, c.root, bin, "-version")
	if err != nil {
		return fmt.Errorf("%w: %s unavailable: %w", ErrConfiguration, bin, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: %s -version exited with %d", ErrConfiguration, bin, res.ExitCode)
	}
	c.log.Debug(ctx, "toolchain verified", logger.String("binary", bin),
		logger.String("version", strings.TrimSpace(string(res.Output))))
	c.verified[bin] = true
	return nil
}

// relocateClasses moves Clojure output from root/classes into root and
// leaves the classes directory empty.
func (c *Compiler) relocateClasses() error {
	src := filepath.Join(c.root, classesDir)
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil || rel == "." {
			return err
		}
		dst := filepath.Join(c.root, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0o644)
	})
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(src, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// OnPut compiles a competitor after the registry accepted it. Failures are
// logged and recorded in the status table.
func (c *Compiler) OnPut(ctx context.Context, spec model.CompetitorSpec) {
	if err := c.Compile(ctx, spec); err != nil {
		c.log.Warn(ctx, "competitor not compiled",
			logger.String("key", spec.RepositoryKey), logger.Error(err))
	}
}

// Compiled reports whether the latest version under key compiled.
func (c *Compiler) Compiled(key string) bool {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status[key].Compiled
}

// Status returns the last outcome for key.
func (c *Compiler) Status(key string) (Status, bool) {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	s, ok := c.status[key]
	return s, ok
}

// Statuses returns every known outcome ordered by key.
func (c *Compiler) Statuses() []Status {
	c.statusMu.RLock()
	out := make([]Status, 0, len(c.status))
	for _, s := range c.status {
		out = append(out, s)
	}
	c.statusMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (c *Compiler) setStatus(spec model.CompetitorSpec, err error) {
	s := Status{
		Key:        spec.RepositoryKey,
		Language:   spec.Language,
		Version:    spec.Version,
		Compiled:   err == nil,
		CompiledAt: time.Now().UTC(),
	}
	if err != nil {
		s.Error = err.Error()
	}
	c.statusMu.Lock()
	c.status[spec.RepositoryKey] = s
	c.statusMu.Unlock()
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrCompileFailed):
		return "compile_failed"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "other"
	}
}
