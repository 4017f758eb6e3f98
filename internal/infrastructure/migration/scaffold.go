package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Pair is a scaffolded up/down migration file pair.
type Pair struct {
	Version  string
	UpPath   string
	DownPath string
}

// Scaffold writes an empty up/down pair into dir, versioned with the current
// timestamp so lexical order matches creation order. Headers follow the
// format of the committed migrations under migrations/.
func Scaffold(dir, name, description string) (*Pair, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("migration: create dir %s: %w", dir, err)
	}

	slug := Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration: name %q has no usable characters", name)
	}

	version := time.Now().Format("20060102150405")
	base := filepath.Join(dir, version+"_"+slug)
	p := &Pair{
		Version:  version,
		UpPath:   base + ".up.sql",
		DownPath: base + ".down.sql",
	}

	up := fmt.Sprintf("-- Migration: %s\n-- Description: %s\n\n", slug, description)
	down := fmt.Sprintf("-- Migration: %s (Rollback)\n\n", slug)

	if err := os.WriteFile(p.UpPath, []byte(up), 0o644); err != nil {
		return nil, fmt.Errorf("migration: write %s: %w", p.UpPath, err)
	}
	if err := os.WriteFile(p.DownPath, []byte(down), 0o644); err != nil {
		_ = os.Remove(p.UpPath)
		return nil, fmt.Errorf("migration: write %s: %w", p.DownPath, err)
	}
	return p, nil
}

// Slugify reduces a migration name to lower_snake_case, dropping characters
// that have no place in a file name.
func Slugify(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 {
				pendingSep = true
			}
			continue
		default:
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// List returns the base names of the migration pairs in dir, sorted by
// version. A missing directory lists as empty.
func List(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, fmt.Errorf("migration: list %s: %w", dir, err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".up.sql"))
	}
	sort.Strings(names)
	return names, nil
}
