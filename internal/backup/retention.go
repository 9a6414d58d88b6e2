package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Info holds export file metadata for retention decisions. CreatedAt comes
// from the timestamp embedded in the filename, so retention survives copies
// and restores that reset the file modification time.
type Info struct {
	Path      string
	CreatedAt time.Time
}

// RetentionPolicy decides which exports to keep.
type RetentionPolicy interface {
	Apply(exports []Info) (keep []Info)
}

// CountPolicy keeps the N most recent exports.
type CountPolicy struct {
	MaxCount int
}

// Apply keeps the first MaxCount exports (assumed sorted newest-first).
func (p *CountPolicy) Apply(exports []Info) []Info {
	if len(exports) <= p.MaxCount {
		return exports
	}
	return exports[:p.MaxCount]
}

// AgePolicy keeps exports newer than MaxAge.
type AgePolicy struct {
	MaxAge time.Duration
}

// Apply keeps exports whose CreatedAt is within MaxAge of now.
func (p *AgePolicy) Apply(exports []Info) []Info {
	cutoff := time.Now().Add(-p.MaxAge)
	var keep []Info
	for _, b := range exports {
		if b.CreatedAt.After(cutoff) {
			keep = append(keep, b)
		}
	}
	return keep
}

// CompositePolicy keeps an export if ANY sub-policy wants it.
type CompositePolicy struct {
	Policies []RetentionPolicy
}

// Apply returns the union of exports kept by any sub-policy.
func (p *CompositePolicy) Apply(exports []Info) []Info {
	kept := make(map[string]bool)
	for _, policy := range p.Policies {
		for _, b := range policy.Apply(exports) {
			kept[b.Path] = true
		}
	}
	var result []Info
	for _, b := range exports {
		if kept[b.Path] {
			result = append(result, b)
		}
	}
	return result
}

// ListExports scans dir for gocosmo-export-* files, newest first. The
// timestamp embedded in the filename gives the ordering.
func ListExports(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading export directory: %w", err)
	}

	var exports []Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		created, ok := exportTime(e.Name())
		if !ok {
			// Fall back to mtime for export files whose timestamp does not
			// parse (hand-renamed files).
			if !isExportFile(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			created = info.ModTime()
		}
		exports = append(exports, Info{
			Path:      filepath.Join(dir, e.Name()),
			CreatedAt: created,
		})
	}

	sort.Slice(exports, func(i, j int) bool {
		return exports[i].CreatedAt.After(exports[j].CreatedAt)
	})
	return exports, nil
}

const (
	exportPrefix = "gocosmo-export-"
	exportSuffix = ".json"
	exportStamp  = "20060102-150405"
)

func isExportFile(name string) bool {
	return strings.HasPrefix(name, exportPrefix) && filepath.Ext(name) == exportSuffix
}

// exportTime extracts the creation time embedded in an export filename,
// e.g. gocosmo-export-20260823-140500.json.
func exportTime(name string) (time.Time, bool) {
	if !isExportFile(name) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, exportPrefix), exportSuffix)
	t, err := time.ParseInLocation(exportStamp, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ApplyRetention deletes exports not kept by the policy.
func ApplyRetention(dir string, policy RetentionPolicy) (deleted []string, err error) {
	exports, err := ListExports(dir)
	if err != nil {
		return nil, err
	}

	keep := policy.Apply(exports)
	keepSet := make(map[string]bool, len(keep))
	for _, b := range keep {
		keepSet[b.Path] = true
	}

	for _, b := range exports {
		if !keepSet[b.Path] {
			if err := os.Remove(b.Path); err != nil {
				return deleted, fmt.Errorf("removing %s: %w", filepath.Base(b.Path), err)
			}
			deleted = append(deleted, b.Path)
		}
	}
	return deleted, nil
}

// ParseDuration parses duration strings like "30d", "2w", or any standard Go
// duration ("720h").
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	switch suffix {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration suffix %q in %q", string(suffix), s)
	}
}
