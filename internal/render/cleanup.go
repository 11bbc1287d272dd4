package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"mermaidrender/internal/pkg/logger"
)

// Cleanup deletes the job's artifacts. Only the first call does any work;
// later calls return the first call's result. Missing files are not errors.
func (j *Job) Cleanup(log *logger.Logger) error {
	j.cleanupOnce.Do(func() {
		j.cleanupErr = removeAll(j.Paths()...)
		if j.cleanupErr != nil {
			getMetrics().cleanupErrors.Inc()
			log.Warn("render cleanup incomplete", "job_id", j.ID, "error", j.cleanupErr.Error())
		}
	})
	return j.cleanupErr
}

func removeAll(paths ...string) error {
	var result *multierror.Error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// SweepStale removes job artifacts left in dir by a previous process, e.g.
// after a crash. It must run before the server accepts requests.
func SweepStale(dir string, ext Extensions, log *logger.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", dir, err)
	}

	var stale []string
	for _, e := range entries {
		if e.IsDir() || !isArtifact(e.Name(), ext) {
			continue
		}
		stale = append(stale, filepath.Join(dir, e.Name()))
	}
	if len(stale) == 0 {
		return 0, nil
	}

	err = removeAll(stale...)
	log.Info("swept stale render artifacts", "dir", dir, "count", len(stale))
	return len(stale), err
}

func isArtifact(name string, ext Extensions) bool {
	for _, kind := range []struct{ prefix, ext string }{
		{inputPrefix, ext.Input},
		{configPrefix, ext.Config},
		{outputPrefix, ext.Output},
	} {
		if strings.HasPrefix(name, kind.prefix+"_") && strings.HasSuffix(name, kind.ext) {
			return true
		}
	}
	return false
}
