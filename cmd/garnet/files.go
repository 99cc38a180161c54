package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// inputSet expands command line paths into the ordered input file list.
type inputSet struct {
	baseDir string   // корень для относительных exclude
	exclude []string // имена каталогов или glob относительно baseDir
}

// collect expands every path: files are kept as given, directories are
// walked for *.rb and *.rbi in sorted order. Duplicates keep their first
// position.
func (s inputSet) collect(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		key := filepath.Clean(p)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			// несуществующий файл станет диагностикой чтения
			if os.IsNotExist(err) && isRubyFile(p) {
				add(p)
				continue
			}
			return nil, fmt.Errorf("input %q: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		files, err := s.listRubyFiles(p)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	return out, nil
}

func (s inputSet) listRubyFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if s.excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			// Skip hidden directories
			if path != dir && len(name) > 1 && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isRubyFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// excluded matches a pattern against the base name and against the path
// relative to baseDir.
func (s inputSet) excluded(path string) bool {
	if len(s.exclude) == 0 {
		return false
	}
	name := filepath.Base(path)
	rel := filepath.ToSlash(path)
	if s.baseDir != "" {
		if r, err := filepath.Rel(s.baseDir, path); err == nil {
			rel = filepath.ToSlash(r)
		}
	}
	for _, pat := range s.exclude {
		pat = strings.TrimSuffix(filepath.ToSlash(pat), "/")
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
		if strings.HasPrefix(rel, pat+"/") {
			return true
		}
	}
	return false
}

func isRubyFile(path string) bool {
	switch filepath.Ext(path) {
	case ".rb", ".rbi":
		return true
	}
	return false
}
