package port_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aelexs/hubclock/internal/domain"
	"github.com/aelexs/hubclock/internal/hubclock/app"
	"github.com/aelexs/hubclock/internal/hubclock/driver"
	"github.com/aelexs/hubclock/internal/hubclock/port"
	"github.com/aelexs/hubclock/internal/hubtime"
	"github.com/aelexs/hubclock/pkg/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Lines() []string {
	s := strings.TrimRight(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

type fixture struct {
	svc     *app.Service
	drv     *driver.Driver
	console *port.Console
	out     *syncBuffer
}

func newFixture(t *testing.T, format domain.DisplayFormat, in io.Reader) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := app.NewService(app.ServiceConfig{Initial: hubtime.New(), Logger: logger})
	drv := driver.New(driver.Config{Advancer: svc, Logger: logger})
	out := &syncBuffer{}
	if in == nil {
		in = strings.NewReader("")
	}
	console := port.NewConsole(port.ConsoleConfig{
		Service: svc,
		Driver:  drv,
		In:      in,
		Out:     out,
		Format:  format,
		Logger:  logger,
	})
	return &fixture{svc: svc, drv: drv, console: console, out: out}
}

func (f *fixture) handle(t *testing.T, line string) {
	t.Helper()
	quit, err := f.console.Handle(context.Background(), line)
	require.NoError(t, err)
	require.False(t, quit)
}

func (f *fixture) lastLine() string {
	lines := f.out.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

func TestConsole_TextCommands(t *testing.T) {
	tests := []struct {
		name  string
		setup []string
		line  string
		want  string
	}{
		{"show live", nil, "show", "*000 00′00″00"},
		{"show draft", []string{"edit", "set cycle 42"}, "show", "edit: *042 00′00″00"},
		{"start", nil, "start", "running"},
		{"stop", []string{"start"}, "stop", "stopped"},
		{"toggle from stopped", nil, "toggle", "running"},
		{"p from running", []string{"start"}, "p", "stopped"},
		{"edit", nil, "edit", "edit: *000 00′00″00"},
		{"set valid field", []string{"edit"}, "set slice 3", "edit: *000 03′00″00"},
		{"set empty field coerces to zero", []string{"edit", "set tick 5"}, "set tick", "edit: *000 00′00″00"},
		{"set invalid field keeps value", []string{"edit", "set tick 5"}, "set tick 100", "edit: *000 00′05″00 invalid: tick"},
		{"set non-digit text", []string{"edit"}, "set tickule 1a", "edit: *000 00′00″00 invalid: tickule"},
		{"precision clamps high", []string{"edit"}, "precision 9", "edit: *0000000 00′00″00"},
		{"precision clamps low", []string{"edit"}, "precision 0", "edit: *0 00′00″00"},
		{"save", []string{"edit", "set cycle 12345", "set tickule 45"}, "save", "*345 00′00″45"},
		{"cancel", []string{"edit", "set cycle 12345"}, "cancel", "*000 00′00″00"},
		{"total carries into cycle", nil, "total 160045", "*001 00′00″45"},
		{"total negative resets elapsed", []string{"total 77"}, "total -5", "*000 00′00″00"},
		{"commands are case-insensitive", nil, "SHOW", "*000 00′00″00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, domain.DisplayFormatText, nil)
			for _, line := range tt.setup {
				f.handle(t, line)
			}

			f.handle(t, tt.line)

			assert.Equal(t, tt.want, f.lastLine())
		})
	}
}

func TestConsole_TextErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup []string
		line  string
		want  string
	}{
		{"unknown command", nil, "frob", `error: unknown command: "frob"`},
		{"edit while running", []string{"start"}, "edit", "error: clock must be stopped before editing"},
		{"start while editing", []string{"edit"}, "start", "error: an edit session is already open"},
		{"toggle while editing", []string{"edit"}, "p", "error: an edit session is already open"},
		{"second edit", []string{"edit"}, "edit", "error: an edit session is already open"},
		{"set without session", nil, "set slice 1", "error: no edit session is open"},
		{"save without session", nil, "save", "error: no edit session is open"},
		{"cancel without session", nil, "cancel", "error: no edit session is open"},
		{"unknown field", []string{"edit"}, "set second 1", `error: unknown field: "second"`},
		{"set without field", []string{"edit"}, "set", "error: invalid input: usage: set <field> <text>"},
		{"save invalid draft", []string{"edit", "set slice 16"}, "save", "error: draft has invalid fields: [slice]"},
		{"precision not a number", []string{"edit"}, "precision x", `error: invalid input: precision "x"`},
		{"total not a number", nil, "total 1e3", `error: invalid input: total "1e3"`},
		{"total while editing", []string{"edit"}, "total 5", "error: an edit session is already open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, domain.DisplayFormatText, nil)
			for _, line := range tt.setup {
				f.handle(t, line)
			}

			f.handle(t, tt.line)

			assert.Equal(t, tt.want, f.lastLine())
		})
	}
}

func TestConsole_RefusedSaveKeepsLiveClock(t *testing.T) {
	f := newFixture(t, domain.DisplayFormatText, nil)
	f.handle(t, "edit")
	f.handle(t, "set cycle 99")
	f.handle(t, "set slice 16")

	f.handle(t, "save")

	assert.Equal(t, hubtime.New(), f.svc.Snapshot())
	assert.NotNil(t, f.svc.Session())
}

func TestConsole_HelpAndQuit(t *testing.T) {
	f := newFixture(t, domain.DisplayFormatText, nil)

	f.handle(t, "help")
	assert.Contains(t, f.out.String(), "set <field> <text>")

	for _, line := range []string{"quit", "exit", "q"} {
		quit, err := f.console.Handle(context.Background(), line)
		require.NoError(t, err)
		assert.True(t, quit, line)
	}
}

func TestConsole_BlankAndOverlongLines(t *testing.T) {
	f := newFixture(t, domain.DisplayFormatText, nil)

	f.handle(t, "   ")
	assert.Empty(t, f.out.String())

	f.handle(t, "set "+strings.Repeat("9", domain.MaxCommandLineLength))
	assert.Contains(t, f.lastLine(), "error: invalid input: line longer than")
}

func TestConsole_JSONFrames(t *testing.T) {
	f := newFixture(t, domain.DisplayFormatJSON, nil)

	f.handle(t, "edit")
	f.handle(t, "set slice 16")
	f.handle(t, "save")
	f.handle(t, "set slice 1")
	f.handle(t, "save")
	f.handle(t, "start")

	lines := f.out.Lines()
	require.Len(t, lines, 6)

	frames := make([]protocol.Frame, len(lines))
	for i, line := range lines {
		require.NoError(t, json.Unmarshal([]byte(line), &frames[i]), line)
	}

	var draft protocol.Draft
	assert.Equal(t, protocol.FrameTypeDraft, frames[1].Type)
	require.NoError(t, frames[1].ParsePayload(&draft))
	assert.False(t, draft.Valid)
	assert.NotEmpty(t, draft.SessionID)
	require.Len(t, draft.Fields, 4)
	assert.Equal(t, protocol.Field{Name: "slice", Text: "16", Value: 0, Valid: false}, draft.Fields[1])

	var refused protocol.Error
	assert.Equal(t, protocol.FrameTypeError, frames[2].Type)
	require.NoError(t, frames[2].ParsePayload(&refused))
	assert.Equal(t, "INVALID_DRAFT", refused.Code)

	var snap protocol.Snapshot
	assert.Equal(t, protocol.FrameTypeSnapshot, frames[4].Type)
	require.NoError(t, frames[4].ParsePayload(&snap))
	assert.Equal(t, 1, snap.Slice)
	assert.Equal(t, "01′00″00", snap.TimeDisplay)
	assert.False(t, snap.Running)

	var ack protocol.Ack
	assert.Equal(t, protocol.FrameTypeAck, frames[5].Type)
	require.NoError(t, frames[5].ParsePayload(&ack))
	assert.Equal(t, protocol.Ack{Command: "start", Message: "running"}, ack)
}

func TestConsole_RunScript(t *testing.T) {
	script := strings.Join([]string{
		"edit",
		"set slice 3",
		"set tick 200",
		"save",
		"set tick 4",
		"save",
		"quit",
		"show", // never reached
	}, "\n") + "\n"
	f := newFixture(t, domain.DisplayFormatText, strings.NewReader(script))

	require.NoError(t, f.console.Run(context.Background()))

	assert.Equal(t, []string{
		"*000 00′00″00",
		"edit: *000 00′00″00",
		"edit: *000 03′00″00",
		"edit: *000 03′00″00 invalid: tick",
		"error: draft has invalid fields: [tick]",
		"edit: *000 03′04″00",
		"*000 03′04″00",
	}, f.out.Lines())
}

func TestConsole_RunSkipsOverlongLines(t *testing.T) {
	limit := domain.MaxCommandLineLength
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "overlong line is refused and reading continues",
			script: "total " + strings.Repeat("9", 64*limit) + "\ntotal 5\nquit\n",
			want: []string{
				"*000 00′00″00",
				fmt.Sprintf("error: invalid input: line longer than %d bytes", limit),
				"*000 00′00″05",
			},
		},
		{
			name:   "overlong last line without newline",
			script: "total 5\n" + strings.Repeat("x", 2*limit),
			want: []string{
				"*000 00′00″00",
				"*000 00′00″05",
				fmt.Sprintf("error: invalid input: line longer than %d bytes", limit),
			},
		},
		{
			name:   "line at the limit is handled",
			script: "total 6" + strings.Repeat(" ", limit-len("total 6")) + "\nquit\n",
			want: []string{
				"*000 00′00″00",
				"*000 00′00″06",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, domain.DisplayFormatText, strings.NewReader(tt.script))

			require.NoError(t, f.console.Run(context.Background()))

			assert.Equal(t, tt.want, f.out.Lines())
		})
	}
}

func TestConsole_RunEndsAtEOFWhenStopped(t *testing.T) {
	f := newFixture(t, domain.DisplayFormatText, strings.NewReader("total 77"))

	require.NoError(t, f.console.Run(context.Background()))

	assert.Equal(t, []string{"*000 00′00″00", "*000 00′00″77"}, f.out.Lines())
}

func TestConsole_RunKeepsGoingAtEOFWhileRunning(t *testing.T) {
	f := newFixture(t, domain.DisplayFormatText, strings.NewReader("start\n"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.console.Run(ctx) }()

	assert.Eventually(t, func() bool { return f.lastLine() == "running" }, time.Second, time.Millisecond)
	// Keep advancing until a live line appears after the ack.
	assert.Eventually(t, func() bool {
		_ = f.svc.Advance(context.Background())
		return strings.HasPrefix(f.lastLine(), "*000 00′00″")
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestConsole_RunRendersLiveChanges(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	f := newFixture(t, domain.DisplayFormatText, pr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.console.Run(ctx) }()
	assert.Eventually(t, func() bool { return len(f.out.Lines()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, f.svc.Advance(context.Background()))
	assert.Eventually(t, func() bool { return f.lastLine() == "*000 00′00″01" }, time.Second, time.Millisecond)

	// The live clock does not move while a draft is open.
	_, err := pw.Write([]byte("edit\n"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return strings.HasPrefix(f.lastLine(), "edit:") }, time.Second, time.Millisecond)
	assert.ErrorIs(t, f.svc.SetTotalElapsed(context.Background(), 500), domain.ErrEditInProgress)
	assert.Never(t, func() bool { return !strings.HasPrefix(f.lastLine(), "edit:") }, 50*time.Millisecond, 5*time.Millisecond)

	_, err = pw.Write([]byte("quit\n"))
	require.NoError(t, err)
	require.NoError(t, <-done)
	cancel()
}

func TestConsole_StyledOutput(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := app.NewService(app.ServiceConfig{Initial: hubtime.New(), Logger: logger})
	var out bytes.Buffer
	console := port.NewConsole(port.ConsoleConfig{
		Service: svc,
		Driver:  driver.New(driver.Config{Advancer: svc, Logger: logger}),
		Out:     &out,
		Format:  domain.DisplayFormatText,
		Styled:  true,
		Logger:  logger,
	})

	_, err := console.Handle(context.Background(), "show")
	require.NoError(t, err)

	line, err := bufio.NewReader(&out).ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "\x1b[")
	assert.Contains(t, line, "*000")
	assert.Contains(t, line, "00′00″00")
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer

	assert.True(t, port.ColorEnabled("always", &buf))
	assert.False(t, port.ColorEnabled("never", &buf))
	assert.False(t, port.ColorEnabled("auto", &buf), "non-file writers are never terminals")
}

func TestSnapshotOf(t *testing.T) {
	ht := hubtime.New()
	ht.SetCycle(12345)
	ht.SetTotalElapsed(hubtime.Join(1, 23, 45))

	got := port.SnapshotOf(ht, true)

	assert.Equal(t, protocol.Snapshot{
		Cycle:        12345,
		Precision:    3,
		Elapsed:      12345,
		Slice:        1,
		Tick:         23,
		Tickule:      45,
		CycleDisplay: "*345",
		TimeDisplay:  "01′23″45",
		Running:      true,
	}, got)
}

func TestTimeFromFrame(t *testing.T) {
	ht := hubtime.New()
	ht.SetCycle(42)
	ht.SetPrecision(4)
	ht.SetTotalElapsed(hubtime.Join(3, 4, 5))

	t.Run("snapshot round trip", func(t *testing.T) {
		frame, err := protocol.NewFrame(protocol.FrameTypeSnapshot, port.SnapshotOf(ht, true))
		require.NoError(t, err)

		got, err := port.TimeFromFrame(frame)

		require.NoError(t, err)
		assert.Equal(t, ht, got)
	})

	t.Run("draft uses its snapshot", func(t *testing.T) {
		f := newFixture(t, domain.DisplayFormatText, nil)
		f.handle(t, "edit")
		f.handle(t, "set cycle 9")
		frame, err := protocol.NewFrame(protocol.FrameTypeDraft, port.DraftOf(f.svc.Session()))
		require.NoError(t, err)

		got, err := port.TimeFromFrame(frame)

		require.NoError(t, err)
		assert.Equal(t, "*009 00′00″00", got.String())
	})

	t.Run("out of range values clamp and carry", func(t *testing.T) {
		frame, err := protocol.NewFrame(protocol.FrameTypeSnapshot, protocol.Snapshot{
			Cycle:     -4,
			Precision: 12,
			Elapsed:   hubtime.TickulesPerCycle + 1,
		})
		require.NoError(t, err)

		got, err := port.TimeFromFrame(frame)

		require.NoError(t, err)
		assert.Equal(t, "*0000001 00′00″01", got.String())
	})

	t.Run("frames without a clock value are refused", func(t *testing.T) {
		frame, err := protocol.NewFrame(protocol.FrameTypeAck, protocol.Ack{Command: "stop"})
		require.NoError(t, err)

		_, err = port.TimeFromFrame(frame)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestConsole_RefusalLogLevels(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	svc := app.NewService(app.ServiceConfig{Initial: hubtime.New(), Logger: logger})
	drv := driver.New(driver.Config{Advancer: svc, Logger: logger})
	console := port.NewConsole(port.ConsoleConfig{
		Service: svc,
		Driver:  drv,
		In:      strings.NewReader(""),
		Out:     io.Discard,
		Format:  domain.DisplayFormatText,
		Logger:  logger,
	})

	drv.Start()
	_, err := console.Handle(context.Background(), "edit")
	require.NoError(t, err)
	_, err = console.Handle(context.Background(), "frob")
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "console.edit_conflict")
	assert.NotContains(t, logs.String(), "console.command_refused", "plain refusals stay at debug")
}
