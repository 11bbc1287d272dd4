package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"mermaidrender/internal/contracts/mmdc"
)

// writeInputs materializes the diagram source and config document at the
// job's paths. Files are created exclusively so one job can never overwrite
// another's artifacts.
func writeInputs(job *Job, source string, cfg mmdc.Config) error {
	if err := writeExclusive(job.InputPath, func(w io.Writer) error {
		_, err := io.WriteString(w, source)
		return err
	}); err != nil {
		return fmt.Errorf("writing input: %w", err)
	}

	if err := writeExclusive(job.ConfigPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func writeExclusive(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
