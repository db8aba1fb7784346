package internal

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const vmExt = ".vm"

func isVMFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), vmExt) && len(name) > len(vmExt)
}

// unitName is the file name without directory and extension, Main.vm gives Main.
func unitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadPath loads a single .vm file, or every .vm file directly inside a directory in name order. Sub directories
// are ignored.
func LoadPath(path string) (*Program, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}
	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, errors.Wrap(err, "load")
		}
		for _, entry := range entries {
			if entry.IsDir() || !isVMFile(entry.Name()) {
				continue
			}
			files = append(files, filepath.Join(path, entry.Name()))
		}
		if len(files) == 0 {
			return nil, errors.Errorf("load: no %s file in %s", vmExt, path)
		}
	} else {
		if !isVMFile(path) {
			return nil, errors.Errorf("load: %s is not a %s file", path, vmExt)
		}
		files = append(files, path)
	}
	program := &Program{}
	for _, file := range files {
		unit, err := loadFile(file)
		if err != nil {
			return nil, err
		}
		program.Add(unit)
	}
	return program, nil
}

func loadFile(path string) (Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unit{}, errors.Wrap(err, "load")
	}
	defer f.Close()
	return LoadUnit(unitName(path), f)
}

// DefaultOutput is dir/dir.asm for a directory and file.asm next to a file.
func DefaultOutput(path string) string {
	clean := filepath.Clean(path)
	if info, err := os.Stat(clean); err == nil && info.IsDir() {
		abs, err := filepath.Abs(clean)
		if err != nil {
			abs = clean
		}
		return filepath.Join(clean, filepath.Base(abs)+".asm")
	}
	return strings.TrimSuffix(clean, filepath.Ext(clean)) + ".asm"
}
