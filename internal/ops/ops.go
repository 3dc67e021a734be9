// Package ops implements the file-level operations shared by the CLI and the
// MCP server: correcting and restoring subtitle files, managing the rule
// tables, and querying run history.
package ops

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkt0401/kanasub/internal/config"
	"github.com/pkt0401/kanasub/internal/errors"
	"github.com/pkt0401/kanasub/internal/oracle"
	"github.com/pkt0401/kanasub/internal/rules"
)

// Deps bundles the collaborators every operation works against.
type Deps struct {
	Store  *rules.Store
	Oracle oracle.Oracle
	DB     *sql.DB // run history; may be nil to disable recording
	Cfg    *config.Config

	// Model is the model name recorded in run history.
	Model string
}

// ResolveInputPath resolves an input filename the way the tool's folder
// conventions expect: absolute paths and existing files are used as-is, bare
// names are looked up under the input directory for correction and under the
// corrected directory for restoration.
func ResolveInputPath(cfg *config.Config, name string, direction oracle.Direction) string {
	if filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	if direction == oracle.DirectionRestore {
		return filepath.Join(cfg.CorrectedDir, name)
	}
	return filepath.Join(cfg.InputDir, name)
}

// defaultOutputPath derives the output path for a run: the configured output
// directory plus the input stem with a direction suffix.
func defaultOutputPath(dir, inputPath, suffix string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, suffix, ext))
}

// ensureDirs creates the conventional input/output folders if missing.
func ensureDirs(cfg *config.Config) error {
	for _, dir := range []string{cfg.InputDir, cfg.CorrectedDir, cfg.RestoredDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewInternal(fmt.Errorf("create folder %s: %w", dir, err))
		}
	}
	return nil
}
