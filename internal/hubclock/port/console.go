// Package port is the line-oriented terminal front-end of the clock. It
// reads one command per line and renders the live clock or the open draft
// as text or JSON frames.
package port

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/hubclock/internal/domain"
	"github.com/aelexs/hubclock/internal/editor"
	"github.com/aelexs/hubclock/internal/errmap"
	"github.com/aelexs/hubclock/internal/hubclock/app"
	"github.com/aelexs/hubclock/internal/hubtime"
	"github.com/aelexs/hubclock/internal/observability"
)

var tracer = otel.Tracer("hubclock/port")

// ClockService is the part of app.Service the console drives.
type ClockService interface {
	Snapshot() hubtime.Time
	SetTotalElapsed(ctx context.Context, tickules int) error
	BeginEdit(ctx context.Context) (*editor.Session, error)
	Session() *editor.Session
	EditField(ctx context.Context, sess *editor.Session, name domain.FieldName, text string) (bool, error)
	EditPrecision(sess *editor.Session, precision int) error
	Commit(ctx context.Context, sess *editor.Session) error
	Cancel(ctx context.Context, sess *editor.Session) error
	Subscribe(l app.Listener) (cancel func())
}

// RunControl is the driver's run flag.
type RunControl interface {
	Start() bool
	Stop() bool
	Toggle() bool
	Running() bool
}

// ConsoleConfig holds the dependencies for Console.
type ConsoleConfig struct {
	Service ClockService
	Driver  RunControl
	In      io.Reader
	Out     io.Writer
	Format  domain.DisplayFormat
	Styled  bool
	Logger  *slog.Logger
}

// Console reads commands from In and writes every line of output to Out
// from the goroutine running Run.
type Console struct {
	svc    ClockService
	driver RunControl
	in     io.Reader
	render renderer
	logger *slog.Logger
}

// NewConsole creates a Console.
func NewConsole(cfg ConsoleConfig) *Console {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		svc:    cfg.Service,
		driver: cfg.Driver,
		in:     cfg.In,
		render: newRenderer(cfg.Format, cfg.Out, cfg.Styled),
		logger: logger,
	}
}

type input struct {
	line    string
	tooLong bool
	err     error
}

// Run prints the clock, then handles commands until quit, ctx is done, or
// input ends while the clock is stopped. Live changes are rendered while no
// draft is open. Only output failures are returned; refused commands are
// rendered and the loop continues.
func (c *Console) Run(ctx context.Context) error {
	changed := make(chan struct{}, 1)
	unsubscribe := c.svc.Subscribe(func(hubtime.Time) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)
	inputs := make(chan input)
	go c.readLines(done, inputs)

	if err := c.render.Live(c.svc.Snapshot(), c.driver.Running()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-changed:
			if c.svc.Session() != nil {
				continue
			}
			if err := c.render.Live(c.svc.Snapshot(), c.driver.Running()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

		case in := <-inputs:
			if in.err != nil {
				if !errors.Is(in.err, io.EOF) {
					return fmt.Errorf("read input: %w", in.err)
				}
				c.logger.InfoContext(ctx, "console.input_closed", "running", c.driver.Running())
				if !c.driver.Running() {
					return nil
				}
				inputs = nil
				continue
			}

			var (
				quit bool
				err  error
			)
			if in.tooLong {
				err = c.fail(ctx, "", errLineTooLong())
			} else {
				quit, err = c.Handle(ctx, in.line)
			}
			if err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if quit {
				return nil
			}
			// The command already rendered the state it changed.
			select {
			case <-changed:
			default:
			}
		}
	}
}

func (c *Console) readLines(done <-chan struct{}, inputs chan<- input) {
	send := func(in input) bool {
		select {
		case inputs <- in:
			return true
		case <-done:
			return false
		}
	}

	var tooLong bool
	sc := bufio.NewScanner(c.in)
	sc.Buffer(make([]byte, 0, 4096), domain.MaxCommandLineLength+1)
	sc.Split(boundedLines(domain.MaxCommandLineLength, &tooLong))
	for sc.Scan() {
		if !send(input{line: sc.Text(), tooLong: tooLong}) {
			return
		}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	send(input{err: err})
}

// boundedLines splits like bufio.ScanLines, except that a line longer than
// max is consumed without being buffered and yields an empty token with
// *tooLong set.
func boundedLines(max int, tooLong *bool) bufio.SplitFunc {
	discarding := false
	return func(data []byte, atEOF bool) (int, []byte, error) {
		*tooLong = false
		if discarding {
			i := bytes.IndexByte(data, '\n')
			if i < 0 && !atEOF {
				return len(data), nil, nil
			}
			discarding = false
			*tooLong = true
			if i < 0 {
				return len(data), []byte{}, nil
			}
			return i + 1, []byte{}, nil
		}
		if len(data) > max && bytes.IndexByte(data, '\n') < 0 {
			discarding = true
			return len(data), nil, nil
		}
		return bufio.ScanLines(data, atEOF)
	}
}

func errLineTooLong() error {
	return fmt.Errorf("%w: line longer than %d bytes", domain.ErrInvalidInput, domain.MaxCommandLineLength)
}

// Handle executes one command line. It reports whether the line asked to
// quit; the error is non-nil only when output could not be written.
func (c *Console) Handle(ctx context.Context, line string) (quit bool, err error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}
	name, args := strings.ToLower(args[0]), args[1:]

	ctx, span := tracer.Start(ctx, "console.command")
	defer span.End()
	span.SetAttributes(attribute.String("command", name))

	if len(line) > domain.MaxCommandLineLength {
		return false, c.fail(ctx, name, errLineTooLong())
	}

	c.logger.DebugContext(ctx, "console.command", "command", name)

	switch name {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		return false, c.render.Help()
	case "show":
		return false, c.show()
	case "start":
		return false, c.start(ctx, name)
	case "stop":
		c.driver.Stop()
		return false, c.render.Ack(name, "stopped")
	case "toggle", "p":
		return false, c.toggle(ctx, name)
	case "edit":
		return false, c.edit(ctx, name)
	case "set":
		return false, c.set(ctx, name, args)
	case "precision":
		return false, c.precision(ctx, name, args)
	case "save":
		return false, c.save(ctx, name)
	case "cancel":
		return false, c.cancel(ctx, name)
	case "total":
		return false, c.total(ctx, name, args)
	default:
		return false, c.fail(ctx, name, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, name))
	}
}

// fail renders a refused command. Edit conflicts are logged at info, other
// client errors at debug, and anything else as an error.
func (c *Console) fail(ctx context.Context, command string, err error) error {
	span := observability.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	logger := observability.WithTraceID(ctx, c.logger)
	switch {
	case domain.IsEditConflict(err):
		logger.InfoContext(ctx, "console.edit_conflict", "command", command, "error", err)
	case domain.IsClientError(err):
		logger.DebugContext(ctx, "console.command_refused", "command", command, "error", err)
	default:
		logger.ErrorContext(ctx, "console.command_failed", "command", command, "error", err)
	}
	return c.render.Error(errmap.ToCommandError(err))
}

func (c *Console) show() error {
	if sess := c.svc.Session(); sess != nil {
		return c.render.Draft(sess)
	}
	return c.render.Live(c.svc.Snapshot(), c.driver.Running())
}

func (c *Console) start(ctx context.Context, command string) error {
	if c.svc.Session() != nil {
		return c.fail(ctx, command, domain.ErrEditInProgress)
	}
	c.driver.Start()
	return c.render.Ack(command, "running")
}

func (c *Console) toggle(ctx context.Context, command string) error {
	if !c.driver.Running() {
		return c.start(ctx, command)
	}
	c.driver.Stop()
	return c.render.Ack(command, "stopped")
}

func (c *Console) edit(ctx context.Context, command string) error {
	if c.driver.Running() {
		return c.fail(ctx, command, domain.ErrClockRunning)
	}
	sess, err := c.svc.BeginEdit(ctx)
	if err != nil {
		return c.fail(ctx, command, err)
	}
	return c.render.Draft(sess)
}

func (c *Console) set(ctx context.Context, command string, args []string) error {
	if len(args) == 0 {
		return c.fail(ctx, command, fmt.Errorf("%w: usage: set <field> <text>", domain.ErrInvalidInput))
	}
	field := domain.FieldName(strings.ToLower(args[0]))
	if !domain.IsValidFieldName(field) {
		return c.fail(ctx, command, fmt.Errorf("%w: %q", domain.ErrUnknownField, field))
	}
	text := strings.Join(args[1:], " ")

	sess := c.svc.Session()
	if _, err := c.svc.EditField(ctx, sess, field, text); err != nil {
		return c.fail(ctx, command, err)
	}
	return c.render.Draft(sess)
}

func (c *Console) precision(ctx context.Context, command string, args []string) error {
	if len(args) != 1 {
		return c.fail(ctx, command, fmt.Errorf("%w: usage: precision <n>", domain.ErrInvalidInput))
	}
	// Out-of-range values are clamped by the draft, so only syntax is checked here.
	f := editor.NewField("precision", math.MaxInt)
	value, ok := f.Update(args[0])
	if !ok {
		return c.fail(ctx, command, fmt.Errorf("%w: precision %q", domain.ErrInvalidInput, args[0]))
	}

	sess := c.svc.Session()
	if err := c.svc.EditPrecision(sess, value); err != nil {
		return c.fail(ctx, command, err)
	}
	return c.render.Draft(sess)
}

func (c *Console) save(ctx context.Context, command string) error {
	if err := c.svc.Commit(ctx, c.svc.Session()); err != nil {
		return c.fail(ctx, command, err)
	}
	return c.render.Live(c.svc.Snapshot(), c.driver.Running())
}

func (c *Console) cancel(ctx context.Context, command string) error {
	if err := c.svc.Cancel(ctx, c.svc.Session()); err != nil {
		return c.fail(ctx, command, err)
	}
	return c.render.Live(c.svc.Snapshot(), c.driver.Running())
}

func (c *Console) total(ctx context.Context, command string, args []string) error {
	if len(args) != 1 || len(args[0]) > domain.MaxFieldInputLength {
		return c.fail(ctx, command, fmt.Errorf("%w: usage: total <n>", domain.ErrInvalidInput))
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return c.fail(ctx, command, fmt.Errorf("%w: total %q", domain.ErrInvalidInput, args[0]))
	}
	if err := c.svc.SetTotalElapsed(ctx, n); err != nil {
		return c.fail(ctx, command, err)
	}
	return c.render.Live(c.svc.Snapshot(), c.driver.Running())
}
