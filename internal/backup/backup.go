// Package backup exports and imports the distance table cache as portable
// JSON files, with retention policies for pruning old exports.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/astrika/gocosmo/internal/store"
)

// ExportFormat is the JSON structure of a full cache export.
type ExportFormat struct {
	Version   int         `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
	Runs      []ExportRun `json:"runs"`
}

// ExportRun is one cached distance table with its samples.
type ExportRun struct {
	store.Run
	Samples []store.Sample `json:"samples"`
}

// DefaultDir returns the default export directory (~/.gocosmo/backups).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".gocosmo", "backups"), nil
}

// Export writes every cached distance table to a JSON file at outputPath.
func Export(ctx context.Context, st *store.Store, outputPath string) (*ExportFormat, error) {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cached runs: %w", err)
	}

	out := &ExportFormat{
		Version:   1,
		CreatedAt: time.Now().UTC(),
		Runs:      make([]ExportRun, 0, len(runs)),
	}
	for _, r := range runs {
		samples, ok, err := st.GetTable(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("reading table %s: %w", r.ID, err)
		}
		if !ok {
			continue
		}
		out.Runs = append(out.Runs, ExportRun{Run: r, Samples: samples})
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return out, nil
}

// ImportMode controls how Import handles tables already in the cache.
type ImportMode string

const (
	// ImportMerge skips tables whose key already exists (default).
	ImportMerge ImportMode = "merge"
	// ImportReplace clears the cache before importing.
	ImportReplace ImportMode = "replace"
)

// ImportResult reports what an import did.
type ImportResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
}

// Import loads distance tables from an export file into the cache.
func Import(ctx context.Context, st *store.Store, inputPath string, mode ImportMode) (*ImportResult, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("opening export file: %w", err)
	}
	defer f.Close()

	var in ExportFormat
	if err := json.NewDecoder(f).Decode(&in); err != nil {
		return nil, fmt.Errorf("decoding export file: %w", err)
	}
	if in.Version != 1 {
		return nil, fmt.Errorf("unsupported export version: %d", in.Version)
	}

	if mode == ImportReplace {
		if err := st.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clearing cache for replace: %w", err)
		}
	}

	result := &ImportResult{}
	for _, r := range in.Runs {
		if mode == ImportMerge {
			if _, ok, err := st.GetTable(ctx, r.ID); err != nil {
				return nil, fmt.Errorf("checking existing table %s: %w", r.ID, err)
			} else if ok {
				result.Skipped++
				continue
			}
		}
		if _, err := st.PutTable(ctx, r.Model, r.Params, r.ZMax, r.Samples); err != nil {
			return nil, fmt.Errorf("restoring table %s: %w", r.ID, err)
		}
		result.Restored++
	}
	return result, nil
}

// GeneratePath creates a timestamped export filename in dir.
func GeneratePath(dir string) string {
	ts := time.Now().Format(exportStamp)
	return filepath.Join(dir, exportPrefix+ts+exportSuffix)
}
