package port

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/aelexs/hubclock/internal/domain"
	"github.com/aelexs/hubclock/internal/editor"
	"github.com/aelexs/hubclock/internal/errmap"
	"github.com/aelexs/hubclock/internal/hubtime"
	"github.com/aelexs/hubclock/pkg/protocol"
)

const usage = `commands:
  start | stop | toggle (p)    run or pause the clock
  edit                         open a draft (clock must be stopped)
  set <field> <text>           field is cycle, slice, tick or tickule
  precision <n>                cycle digits shown, 1-7
  save | cancel                commit or discard the draft
  total <n>                    set tickules since the cycle began; overflow carries
  show                         print the current state
  help                         print this text
  quit                         exit`

// renderer writes console output in one display format.
type renderer interface {
	Live(t hubtime.Time, running bool) error
	Draft(sess *editor.Session) error
	Ack(command, message string) error
	Error(ce errmap.CommandError) error
	Help() error
}

func newRenderer(format domain.DisplayFormat, w io.Writer, styled bool) renderer {
	if format == domain.DisplayFormatJSON {
		return &jsonRenderer{enc: json.NewEncoder(w)}
	}
	return &textRenderer{w: w, st: newStyles(w, styled)}
}

// SnapshotOf converts a clock value to its output frame payload.
func SnapshotOf(t hubtime.Time, running bool) protocol.Snapshot {
	slice, tick, tickule := t.Components()
	return protocol.Snapshot{
		Cycle:        t.Cycle(),
		Precision:    t.Precision(),
		Elapsed:      t.Elapsed(),
		Slice:        slice,
		Tick:         tick,
		Tickule:      tickule,
		CycleDisplay: t.CycleString(),
		TimeDisplay:  t.TimeString(),
		Running:      running,
	}
}

// DraftOf converts an edit session to its output frame payload.
func DraftOf(sess *editor.Session) protocol.Draft {
	states := sess.Fields()
	fields := make([]protocol.Field, 0, len(states))
	for _, f := range states {
		fields = append(fields, protocol.Field{
			Name:  string(f.Name),
			Text:  f.Text,
			Value: f.Value,
			Valid: f.Valid,
		})
	}
	return protocol.Draft{
		SessionID: sess.ID(),
		Snapshot:  SnapshotOf(sess.Draft(), false),
		Fields:    fields,
		Valid:     sess.Valid(),
	}
}

// TimeFromFrame rebuilds the clock value carried by a snapshot or draft
// frame. Values are clamped and carried as on any other clock write.
func TimeFromFrame(frame *protocol.Frame) (hubtime.Time, error) {
	var snap protocol.Snapshot
	switch frame.Type {
	case protocol.FrameTypeSnapshot:
		if err := frame.ParsePayload(&snap); err != nil {
			return hubtime.Time{}, fmt.Errorf("%w: snapshot frame: %v", domain.ErrInvalidInput, err)
		}
	case protocol.FrameTypeDraft:
		var draft protocol.Draft
		if err := frame.ParsePayload(&draft); err != nil {
			return hubtime.Time{}, fmt.Errorf("%w: draft frame: %v", domain.ErrInvalidInput, err)
		}
		if _, err := domain.NewSessionID(draft.SessionID); err != nil {
			return hubtime.Time{}, err
		}
		snap = draft.Snapshot
	default:
		return hubtime.Time{}, fmt.Errorf("%w: %q frame carries no clock value", domain.ErrInvalidInput, frame.Type)
	}

	t := hubtime.New()
	t.SetCycle(snap.Cycle)
	t.SetPrecision(snap.Precision)
	t.SetTotalElapsed(snap.Elapsed)
	return t, nil
}

// ColorEnabled resolves a color mode ("auto", "always", "never") for w.
// Auto enables color only when w is a terminal.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type styles struct {
	cycle func(string) string
	edit  func(string) string
	bad   func(string) string
}

func plain(s string) string { return s }

func newStyles(w io.Writer, styled bool) styles {
	if !styled {
		return styles{cycle: plain, edit: plain, bad: plain}
	}
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.ANSI)
	render := func(st lipgloss.Style) func(string) string {
		return func(s string) string { return st.Render(s) }
	}
	return styles{
		cycle: render(r.NewStyle().Bold(true)),
		edit:  render(r.NewStyle().Foreground(lipgloss.Color("3"))),
		bad:   render(r.NewStyle().Foreground(lipgloss.Color("1"))),
	}
}

// textRenderer prints "<cycle> <time>" lines.
type textRenderer struct {
	w  io.Writer
	st styles
}

func (r *textRenderer) Live(t hubtime.Time, _ bool) error {
	_, err := fmt.Fprintf(r.w, "%s %s\n", r.st.cycle(t.CycleString()), t.TimeString())
	return err
}

func (r *textRenderer) Draft(sess *editor.Session) error {
	d := sess.Draft()
	line := fmt.Sprintf("%s %s %s", r.st.edit("edit:"), r.st.cycle(d.CycleString()), d.TimeString())
	if invalid := sess.InvalidFields(); len(invalid) > 0 {
		names := make([]string, len(invalid))
		for i, name := range invalid {
			names[i] = string(name)
		}
		line += " " + r.st.bad("invalid: "+strings.Join(names, ", "))
	}
	_, err := fmt.Fprintln(r.w, line)
	return err
}

func (r *textRenderer) Ack(_, message string) error {
	_, err := fmt.Fprintln(r.w, message)
	return err
}

func (r *textRenderer) Error(ce errmap.CommandError) error {
	_, err := fmt.Fprintln(r.w, r.st.bad("error: "+ce.Message))
	return err
}

func (r *textRenderer) Help() error {
	_, err := fmt.Fprintln(r.w, usage)
	return err
}

// jsonRenderer prints one protocol.Frame per line.
type jsonRenderer struct {
	enc *json.Encoder
}

func (r *jsonRenderer) emit(frameType protocol.FrameType, payload interface{}) error {
	frame, err := protocol.NewFrame(frameType, payload)
	if err != nil {
		return err
	}
	return r.enc.Encode(frame)
}

func (r *jsonRenderer) Live(t hubtime.Time, running bool) error {
	return r.emit(protocol.FrameTypeSnapshot, SnapshotOf(t, running))
}

func (r *jsonRenderer) Draft(sess *editor.Session) error {
	return r.emit(protocol.FrameTypeDraft, DraftOf(sess))
}

func (r *jsonRenderer) Ack(command, message string) error {
	return r.emit(protocol.FrameTypeAck, protocol.Ack{Command: command, Message: message})
}

func (r *jsonRenderer) Error(ce errmap.CommandError) error {
	return r.emit(protocol.FrameTypeError, protocol.Error{Code: ce.Code, Message: ce.Message})
}

func (r *jsonRenderer) Help() error {
	return r.Ack("help", usage)
}
