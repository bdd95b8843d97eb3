package rotate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/logtrim-io/logtrim/internal/lock"
)

// findTargets resolves a group's directory and pattern into the sorted
// list of base log files to consider for rotation. Patterns containing
// glob metacharacters expand non-recursively within the directory; a
// literal pattern names at most one file. Rotation artifacts and the
// lock file never match, and dotfiles only match patterns that name
// the leading dot explicitly.
func findTargets(fsys afero.Fs, dir, pattern string) ([]string, error) {
	info, err := fsys.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryMissing, dir)
		}
		return nil, fmt.Errorf("rotate: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("rotate: list %s: %w", dir, err)
	}

	var targets []string
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		name := fi.Name()
		if name == lock.FileName || looksRotated(name) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(pattern, ".") {
			continue
		}
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("rotate: bad pattern %q: %w", pattern, err)
		}
		if !matched {
			continue
		}
		targets = append(targets, filepath.Join(dir, name))
	}

	sort.Strings(targets)
	return targets, nil
}
