package heaptrack

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// ErrRebaseInvariant is returned when a rebased allocation index would leave a
// gap in the emitted sequence. heaptrack-gui indexes an internal array by these
// values, so a gap means the output would crash the viewer; the run fails
// instead of silently writing a corrupt file.
var ErrRebaseInvariant = errors.New("allocation index rebasing lost contiguity")

// Options configures a single trim pass.
type Options struct {
	// SkipThresholdMs is the elapsed-time cutoff in milliseconds. All trace
	// content before the first time command that strictly exceeds it is
	// discarded. Note that this includes any allocation activity appearing
	// before the first time command of the trace, regardless of threshold.
	SkipThresholdMs uint64

	// PreserveTime keeps original timestamps in the output instead of
	// re-basing them to start at zero at the cut point. Graphs keep their
	// original horizontal scale but show a gap where data was removed.
	PreserveTime bool
}

// Stats summarizes a completed pass.
type Stats struct {
	// ElapsedTimeMs is the last timestamp seen in the input, i.e. the total
	// profile duration.
	ElapsedTimeMs uint64

	// DefinitionsWritten counts allocation-definition ("a") lines emitted.
	// Rebased event indices reference exactly [0, DefinitionsWritten).
	DefinitionsWritten uint64

	// LargestWrittenIndex is the highest rebased index emitted.
	LargestWrittenIndex uint64

	LinesRead    uint64
	LinesWritten uint64
}

// Trimmer is a single-pass filter over a heaptrack trace. It drops everything
// before the skip threshold and renumbers the surviving allocation indices into
// a dense zero-based sequence.
//
// The trace is a line-oriented command log; the first byte of each line is the
// command. Only four commands are interpreted:
//
//	c <hex ms>   elapsed time since profile start
//	a ...        allocation declared, implicit sequential index
//	+ <hex idx>  allocation event
//	- <hex idx>  free event
//
// Everything else (string tables, module tables, ...) is passed through
// verbatim: + and - lines dominate the file size, so dropping only those and
// the now-unreferenced a lines is sufficient.
type Trimmer struct {
	opts Options
	log  *zap.Logger

	// Trimmer state; owned by the single Run loop, never shared.
	skipping       bool
	sawEarlyEvent  bool
	elapsedMs      uint64
	correction     uint64
	largestWritten uint64
	defsWritten    uint64
	linesRead      uint64
	linesWritten   uint64

	line    []byte // spill buffer for lines longer than the reader's buffer
	scratch []byte // reusable buffer for rewritten lines
}

// New returns a Trimmer in the initial discarding state.
func New(opts Options, l *zap.Logger) *Trimmer {
	if l == nil {
		l = zap.NewNop()
	}
	return &Trimmer{
		opts:     opts,
		log:      l,
		skipping: true,
	}
}

// Run copies the trace from r to w, trimming and renumbering as configured.
// It processes one line at a time and never revisits written bytes. The
// returned Stats are valid even on error, up to the point of failure.
//
// Buffering of w is the caller's concern; any reader buffer size yields
// identical output bytes.
func (t *Trimmer) Run(r *bufio.Reader, w io.Writer) (Stats, error) {
	for {
		line, err := t.readLine(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return t.stats(), fmt.Errorf("read trace: %w", err)
		}

		t.linesRead++
		if err := t.dispatch(line, w); err != nil {
			return t.stats(), err
		}
	}

	t.log.Info("done",
		zap.Uint64("total_time_ms", t.elapsedMs),
		zap.Uint64("lines_read", t.linesRead),
		zap.Uint64("lines_written", t.linesWritten))

	return t.stats(), nil
}

// readLine returns the next line including its trailing newline, if any. The
// returned slice is only valid until the next call; the common case borrows
// the reader's internal buffer and copies nothing.
func (t *Trimmer) readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err == nil {
		return line, nil
	}

	t.line = append(t.line[:0], line...)
	for errors.Is(err, bufio.ErrBufferFull) {
		line, err = r.ReadSlice('\n')
		t.line = append(t.line, line...)
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if len(t.line) == 0 {
		return nil, io.EOF
	}
	// Final line of the stream, possibly unterminated.
	return t.line, nil
}

func (t *Trimmer) dispatch(line []byte, w io.Writer) error {
	switch line[0] {
	case 'c':
		return t.handleTime(line, w)
	case '+', '-':
		return t.handleEvent(line, w)
	case 'a':
		if t.skipping {
			return nil
		}
		t.defsWritten++
		return t.write(w, line)
	default:
		// Opaque command; filtering these is not worth breaking their
		// cross-references over.
		return t.write(w, line)
	}
}

func (t *Trimmer) handleTime(line []byte, w io.Writer) error {
	ts, err := ParseHex(firstArg(line))
	if err != nil {
		return fmt.Errorf("time command: %w", err)
	}
	t.elapsedMs = ts

	if t.skipping && t.elapsedMs > t.opts.SkipThresholdMs {
		t.skipping = false
		t.log.Info("stopped skipping, writing all data now",
			zap.Uint64("timestamp_ms", t.elapsedMs))
	}
	if t.skipping {
		return nil
	}

	if t.opts.PreserveTime {
		return t.write(w, line)
	}

	buf := append(t.scratch[:0], 'c', ' ')
	buf = AppendHex(buf, t.elapsedMs-t.opts.SkipThresholdMs)
	buf = append(buf, '\n')
	t.scratch = buf
	return t.write(w, buf)
}

func (t *Trimmer) handleEvent(line []byte, w io.Writer) error {
	idx, err := ParseHex(firstArg(line))
	if err != nil {
		return fmt.Errorf("%q command: %w", line[0], err)
	}

	if t.skipping {
		t.sawEarlyEvent = true
		// Indices are declared in non-decreasing order, so this converges to
		// the index of the last allocation declared before the cut.
		if idx > t.correction {
			t.correction = idx
		}
		return nil
	}

	var newIdx uint64
	if t.sawEarlyEvent {
		// The correction offset holds the index of the last allocation
		// declared before the cut. Indices at or below it reference
		// allocations whose definitions were never emitted, so the events
		// must not be either; the next kept index rebases to 0.
		if idx <= t.correction {
			return nil
		}
		newIdx = idx - t.correction - 1
	} else {
		// Nothing was cut ahead of this event, so the input numbering is
		// already dense and zero-based. Running with a zero skip threshold on
		// an already-trimmed trace reproduces it unchanged.
		newIdx = idx
	}
	if newIdx > t.largestWritten+1 {
		return fmt.Errorf("%w: index %x rebased to %x, largest written so far %x",
			ErrRebaseInvariant, idx, newIdx, t.largestWritten)
	}

	buf := append(t.scratch[:0], line[0], ' ')
	buf = AppendHex(buf, newIdx)
	buf = append(buf, '\n')
	t.scratch = buf
	if err := t.write(w, buf); err != nil {
		return err
	}

	if newIdx > t.largestWritten {
		t.largestWritten = newIdx
	}
	return nil
}

func (t *Trimmer) write(w io.Writer, line []byte) error {
	if _, err := w.Write(line); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	t.linesWritten++
	return nil
}

func (t *Trimmer) stats() Stats {
	return Stats{
		ElapsedTimeMs:       t.elapsedMs,
		DefinitionsWritten:  t.defsWritten,
		LargestWrittenIndex: t.largestWritten,
		LinesRead:           t.linesRead,
		LinesWritten:        t.linesWritten,
	}
}

// firstArg extracts the first space-separated argument after the command byte.
func firstArg(line []byte) []byte {
	arg := bytes.TrimLeft(line[1:], " ")
	arg = bytes.TrimRight(arg, " \t\r\n")
	if i := bytes.IndexByte(arg, ' '); i >= 0 {
		arg = arg[:i]
	}
	return arg
}
