// Package converter drives the external hkanno tool. Dump turns a binary
// .hkx file into editable text, Update writes edited text back into it. Both
// stage the text in a temp file next to the tool.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/strrl/hkanno-tui/internal/config"
	"github.com/strrl/hkanno-tui/internal/oplog"
	"github.com/strrl/hkanno-tui/internal/tempfile"
	"github.com/strrl/hkanno-tui/pkg/models"
)

// Error kinds reported by conversions. Returned errors wrap one of these.
var (
	ErrIO           = errors.New("staging file error")
	ErrProcess      = errors.New("converter process failed")
	ErrToolReported = errors.New("converter reported an error")
)

// DoneFunc receives the result of a Dump. It is called exactly once, after
// the staging file has been removed.
type DoneFunc func(text string, err error)

// Options configures a Converter
type Options struct {
	Config config.Converter
	Temps  *tempfile.Manager
	Runner Runner // defaults to ExecRunner
	Log    *oplog.Log
	Logger *slog.Logger
}

// Converter wraps the two converter subcommands
type Converter struct {
	program string
	dir     string
	temps   *tempfile.Manager
	runner  Runner
	log     *oplog.Log
	logger  *slog.Logger

	mu       sync.Mutex
	inflight map[string]models.ConversionRequest // keyed by staging path
	wg       sync.WaitGroup
}

// New creates a Converter. Temps and Log are required.
func New(opts Options) *Converter {
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Converter{
		program:  opts.Config.ExecutablePath(),
		dir:      opts.Config.ToolDir,
		temps:    opts.Temps,
		runner:   runner,
		log:      opts.Log,
		logger:   logger,
		inflight: make(map[string]models.ConversionRequest),
	}
}

// Dump starts converting source to text and returns immediately. done runs on
// the converter's goroutine; callers that own a UI thread must hop back to it
// themselves.
func (c *Converter) Dump(ctx context.Context, source string, done DoneFunc) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		text, err := c.dump(ctx, source)
		done(text, err)
	}()
}

func (c *Converter) dump(ctx context.Context, source string) (string, error) {
	req := models.ConversionRequest{
		Source:    filepath.FromSlash(source),
		Staging:   c.temps.Path(),
		Direction: models.Dump,
	}
	c.track(req)
	defer c.finish(req)

	// stderr is only logged; the staging file decides the outcome.
	if err := c.run(ctx, req, io.Discard); err != nil {
		return "", err
	}

	b, err := c.temps.Read(req.Staging)
	if err != nil {
		return "", c.fail(req, ErrIO, err)
	}
	return string(b), nil
}

// Update writes text into target through the converter and blocks until the
// process exits. The exit code is not inspected: anything on the converter's
// stderr counts as failure, and a quiet run counts as success.
func (c *Converter) Update(ctx context.Context, target, text string) error {
	req := models.ConversionRequest{
		Source:    filepath.FromSlash(target),
		Staging:   c.temps.Path(),
		Direction: models.Update,
		Payload:   text,
	}
	c.track(req)
	defer c.finish(req)

	if err := c.temps.Write(req.Staging, []byte(req.Payload)); err != nil {
		return c.fail(req, ErrIO, err)
	}

	var stderr bytes.Buffer
	if err := c.run(ctx, req, &stderr); err != nil {
		return err
	}
	if stderr.Len() > 0 {
		return c.fail(req, ErrToolReported, errors.New(string(bytes.TrimSpace(stderr.Bytes()))))
	}
	return nil
}

// run launches the converter for req. Both output channels stream into the
// operator log; stderr is also copied to errOut. Only a failed start or an
// abnormal termination is an error; a normal exit with any code is not.
func (c *Converter) run(ctx context.Context, req models.ConversionRequest, errOut io.Writer) error {
	c.logger.Debug("converter start", "direction", req.Direction, "source", req.Source, "staging", req.Staging)

	err := c.runner.Run(ctx, Invocation{
		Program: c.program,
		Args:    req.Args(),
		Dir:     c.dir,
		Stdout:  c.log.Writer(),
		Stderr:  io.MultiWriter(c.log.Writer(), errOut),
	})
	var exit *ExitError
	if errors.As(err, &exit) {
		c.logger.Debug("converter exited", "direction", req.Direction, "source", req.Source, "code", exit.Code)
		return nil
	}
	if err != nil {
		return c.fail(req, ErrProcess, err)
	}
	return nil
}

func (c *Converter) fail(req models.ConversionRequest, kind, err error) error {
	wrapped := fmt.Errorf("%s %s: %w: %w", req.Direction, req.Source, kind, err)
	c.logger.Warn("converter failed", "direction", req.Direction, "source", req.Source, "error", err)
	return wrapped
}

func (c *Converter) track(req models.ConversionRequest) {
	c.mu.Lock()
	c.inflight[req.Staging] = req
	c.mu.Unlock()
}

// finish removes the staging file and forgets the request.
func (c *Converter) finish(req models.ConversionRequest) {
	if err := c.temps.Release(req.Staging); err != nil {
		c.log.Append(err.Error())
		c.logger.Error("staging cleanup failed", "path", req.Staging, "error", err)
	}
	c.mu.Lock()
	delete(c.inflight, req.Staging)
	c.mu.Unlock()
}

// Pending returns the number of conversions currently running.
func (c *Converter) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Wait blocks until every Dump started so far has delivered its result.
func (c *Converter) Wait() {
	c.wg.Wait()
}

// DumpWait runs a Dump and waits for its result. Used by the headless
// commands, which have no UI thread to keep responsive.
func (c *Converter) DumpWait(ctx context.Context, source string) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	c.Dump(ctx, source, func(text string, err error) {
		ch <- result{text: text, err: err}
	})

	select {
	case r := <-ch:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
