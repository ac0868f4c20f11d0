package trace

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// FileSink writes samples as zstd-compressed JSON lines, one file per hour:
// <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst.
type FileSink struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewFileSink(baseDir, prefix string) *FileSink {
	return &FileSink{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *FileSink) WriteSamples(_ context.Context, batch []Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hour := s.now().UTC().Format("2006-01-02-15")
	if hour != s.curHour {
		if err := s.rotateLocked(hour); err != nil {
			return fmt.Errorf("rotate trace file: %w", err)
		}
	}

	for i := range batch {
		b, err := json.Marshal(&batch[i])
		if err != nil {
			return err
		}
		if _, err := s.w.Write(b); err != nil {
			return err
		}
		if err := s.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

func (s *FileSink) rotateLocked(hour string) error {
	if err := s.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	s.f = f
	s.enc = enc
	s.w = bufio.NewWriterSize(enc, 64*1024)
	s.curHour = hour
	return nil
}

func (s *FileSink) closeLocked() error {
	var err1 error
	if s.w != nil {
		_ = s.w.Flush()
	}
	if s.enc != nil {
		err1 = s.enc.Close()
		s.enc = nil
	}
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
	s.w = nil
	s.curHour = ""
	return err1
}

func (s *FileSink) pathForHour(hour string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", s.prefix, hour))
}

// ReadFile decodes every sample in a trace file written by FileSink.
func ReadFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Sample
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var smp Sample
		if err := json.Unmarshal(sc.Bytes(), &smp); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		out = append(out, smp)
	}
	return out, sc.Err()
}
