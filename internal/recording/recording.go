// Package recording writes and reads zstd-compressed JSONL streams of
// render views, one header line followed by one line per frame.
package recording

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/engine"
)

// FormatVersion is written into every header.
const FormatVersion = 1

// maxLine bounds a single decoded JSONL line.
const maxLine = 64 << 20

// ErrNoHeader is returned when a recording does not start with a header.
var ErrNoHeader = errors.New("recording: missing header")

// Header opens every recording.
type Header struct {
	Version    int    `json:"version"`
	Seed       uint64 `json:"seed"`
	BeeCount   int    `json:"bee_count"`
	EveryTicks int    `json:"every_ticks"`
	ParamsYAML string `json:"params_yaml"`
}

// Writer appends frames to a recording file.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
	frames int
}

// Create starts a recording at path, writing the header for p.
func Create(path string, p config.Params, everyTicks int) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w := &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}

	var yml bytes.Buffer
	if err := config.Dump(&yml, p); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("encode params: %w", err)
	}
	h := Header{
		Version:    FormatVersion,
		Seed:       p.RNGSeed,
		BeeCount:   p.BeeCount,
		EveryTicks: everyTicks,
		ParamsYAML: yml.String(),
	}
	if err := w.writeLine(h); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// WriteFrame appends one view.
func (w *Writer) WriteFrame(v *engine.View) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return os.ErrClosed
	}
	if err := w.writeLine(v); err != nil {
		return err
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

func (w *Writer) writeLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes and closes the recording.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var err error
	if w.w != nil {
		err = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	return err
}

// Reader iterates the frames of a recording.
type Reader struct {
	Header Header

	f    *os.File
	dec  *zstd.Decoder
	scan *bufio.Scanner
}

// Open reads the header of the recording at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r := &Reader{f: f, dec: dec, scan: bufio.NewScanner(dec)}
	r.scan.Buffer(make([]byte, 0, 64*1024), maxLine)

	if !r.scan.Scan() {
		err := r.scan.Err()
		r.Close()
		if err == nil {
			err = ErrNoHeader
		}
		return nil, err
	}
	if err := json.Unmarshal(r.scan.Bytes(), &r.Header); err != nil || r.Header.Version == 0 {
		r.Close()
		return nil, ErrNoHeader
	}
	if r.Header.Version > FormatVersion {
		r.Close()
		return nil, fmt.Errorf("recording: unsupported version %d", r.Header.Version)
	}
	return r, nil
}

// Params decodes the recorded parameters.
func (r *Reader) Params() (config.Params, error) {
	return config.Parse([]byte(r.Header.ParamsYAML))
}

// Next decodes the next frame. It returns io.EOF after the last one.
func (r *Reader) Next() (engine.View, error) {
	var v engine.View
	if !r.scan.Scan() {
		if err := r.scan.Err(); err != nil {
			return v, err
		}
		return v, io.EOF
	}
	if err := json.Unmarshal(r.scan.Bytes(), &v); err != nil {
		return v, fmt.Errorf("recording: frame: %w", err)
	}
	return v, nil
}

// Close releases the file.
func (r *Reader) Close() error {
	r.dec.Close()
	return r.f.Close()
}

// Summary describes a recording.
type Summary struct {
	Header    Header
	Frames    int
	FirstTick uint64
	LastTick  uint64
	Duration  float64 // simulated seconds between first and last frame
	MaxBees   int
	MaxLines  int
}

// Summarize reads every frame of r.
func Summarize(r *Reader) (Summary, error) {
	s := Summary{Header: r.Header}
	first := true
	var firstTime float64
	for {
		v, err := r.Next()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return s, err
		}
		if first {
			s.FirstTick, firstTime = v.Tick, v.Time
			first = false
		}
		s.Frames++
		s.LastTick = v.Tick
		s.Duration = v.Time - firstTime
		s.MaxBees = max(s.MaxBees, v.BeeCount())
		s.MaxLines = max(s.MaxLines, len(v.DebugLines))
	}
}
