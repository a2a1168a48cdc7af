package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/yok-tottii/EzS2T-Context/internal/config"
)

// Writer delivers finished transcripts: always to the clipboard, and
// optionally appended to a transcript file with a timestamp header.
type Writer struct {
	output config.OutputConfig
	now    func() time.Time
}

// NewWriter creates a writer for the given output configuration
func NewWriter(output config.OutputConfig) *Writer {
	return &Writer{
		output: output,
		now:    time.Now,
	}
}

// Deliver copies the text to the clipboard and appends it to the
// transcript file when file output is enabled. A file write failure does
// not undo the clipboard copy; the text must stay available to the user.
func (w *Writer) Deliver(text string) error {
	if text == "" {
		return nil
	}

	robotgo.WriteAll(text)

	if !w.output.SaveToFile {
		return nil
	}

	if err := w.appendToFile(text); err != nil {
		return fmt.Errorf("transcript copied but file write failed: %w", err)
	}

	return nil
}

// appendToFile appends the text under a timestamp header
func (w *Writer) appendToFile(text string) error {
	path, err := config.ExpandPath(w.output.FilePath)
	if err != nil {
		return fmt.Errorf("failed to expand output path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	entry := fmt.Sprintf("## %s\n\n%s\n\n", w.now().Format("2006-01-02 15:04:05"), text)
	if _, err := file.WriteString(entry); err != nil {
		return fmt.Errorf("failed to append transcript: %w", err)
	}

	return nil
}
