package forensics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ausocean/utils/logging"
)

type nopLogger struct{}

func (nopLogger) SetLevel(int8)                                    {}
func (nopLogger) Log(level int8, message string, params ...interface{}) {}
func (nopLogger) Debug(msg string, params ...interface{})          {}
func (nopLogger) Info(msg string, params ...interface{})           {}
func (nopLogger) Warning(msg string, params ...interface{})        {}
func (nopLogger) Error(msg string, params ...interface{})          {}
func (nopLogger) Fatal(msg string, params ...interface{})          {}

var _ logging.Logger = nopLogger{}

func TestOnCRCFailWritesRawAndWAV(t *testing.T) {
	dir := t.TempDir()
	j, err := New(dir, 48000, nopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	frame := make([]byte, 32)
	for i := range frame {
		frame[i] = byte(i)
	}
	j.OnCRCFail(frame, 0x1234, 0x5678)

	if got := j.Failures(); got != 1 {
		t.Fatalf("Failures() = %d, want 1", got)
	}

	wavPath := filepath.Join(dir, "ac3-crc-fail-000001.wav")
	if _, err := os.Stat(wavPath); err != nil {
		t.Fatalf("expected wav snippet: %v", err)
	}

	rawPath := filepath.Join(dir, rawFileName)
	info, err := os.Stat(rawPath)
	if err != nil {
		t.Fatalf("expected raw dump file: %v", err)
	}
	if want := int64(12 + len(frame)); info.Size() != want {
		t.Fatalf("raw dump size = %d, want %d", info.Size(), want)
	}
}

func TestOnCRCFailIncrementsSequence(t *testing.T) {
	dir := t.TempDir()
	j, err := New(dir, 48000, nopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	frame := make([]byte, 16)
	j.OnCRCFail(frame, 0, 0)
	j.OnCRCFail(frame, 0, 0)

	if got := j.Failures(); got != 2 {
		t.Fatalf("Failures() = %d, want 2", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "ac3-crc-fail-000002.wav")); err != nil {
		t.Fatalf("expected second wav snippet: %v", err)
	}
}
