package rotate

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
)

// artifact is one numbered generation of a base file.
type artifact struct {
	path    string
	gen     int
	ext     string // compression extension, "" for plain artifacts
	size    int64
	modTime time.Time
}

// compressed reports whether the artifact carries a compression extension.
func (a artifact) compressed() bool {
	return a.ext != ""
}

// fileState is the planner's view of one base file and its generation
// artifacts. The executor folds every applied action back into the
// state, so later planning stages observe the post-action layout in
// real and dry runs alike.
type fileState struct {
	base    string // absolute path of the live log file
	size    int64
	modTime time.Time
	arts    map[string]artifact // keyed by artifact path
}

// captureState stats base and scans its directory for generation
// artifacts belonging to it.
func captureState(fsys afero.Fs, base string) (*fileState, error) {
	info, err := fsys.Stat(base)
	if err != nil {
		return nil, err
	}

	st := &fileState{
		base:    base,
		size:    info.Size(),
		modTime: info.ModTime(),
		arts:    make(map[string]artifact),
	}

	dir := filepath.Dir(base)
	name := filepath.Base(base)
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("rotate: list %s: %w", dir, err)
	}
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		gen, ext, ok := parseGeneration(name, fi.Name())
		if !ok {
			continue
		}
		p := filepath.Join(dir, fi.Name())
		st.arts[p] = artifact{
			path:    p,
			gen:     gen,
			ext:     ext,
			size:    fi.Size(),
			modTime: fi.ModTime(),
		}
	}
	return st, nil
}

// at returns the artifact at gen with the given compression state, or
// nil. When several artifacts share a slot the lexicographically first
// path wins, keeping planning deterministic.
func (st *fileState) at(gen int, compressed bool) *artifact {
	var best *artifact
	for _, a := range st.arts {
		if a.gen != gen || a.compressed() != compressed {
			continue
		}
		if best == nil || a.path < best.path {
			c := a
			best = &c
		}
	}
	return best
}

// artifacts returns every artifact ordered by generation, then path.
func (st *fileState) artifacts() []artifact {
	out := make([]artifact, 0, len(st.arts))
	for _, a := range st.arts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].gen != out[j].gen {
			return out[i].gen < out[j].gen
		}
		return out[i].path < out[j].path
	})
	return out
}

// apply folds one executed action into the state. destSize carries the
// measured size of a produced artifact, or -1 when unknown; simulated
// runs keep the planned size so both modes decide identically.
func (st *fileState) apply(a Action, destSize int64) {
	switch a.Op {
	case OpShift:
		src, ok := st.arts[a.Source]
		if !ok {
			return
		}
		delete(st.arts, a.Source)
		st.arts[a.Dest] = artifact{
			path:    a.Dest,
			gen:     a.Gen,
			ext:     src.ext,
			size:    src.size,
			modTime: src.modTime,
		}
	case OpCopy:
		st.arts[a.Dest] = artifact{
			path:    a.Dest,
			gen:     a.Gen,
			size:    st.size,
			modTime: st.modTime,
		}
	case OpTruncate:
		st.size = 0
	case OpCompress:
		src, ok := st.arts[a.Source]
		if !ok {
			return
		}
		size := src.size
		if destSize >= 0 {
			size = destSize
		}
		delete(st.arts, a.Source)
		st.arts[a.Dest] = artifact{
			path:    a.Dest,
			gen:     a.Gen,
			ext:     a.Ext,
			size:    size,
			modTime: src.modTime,
		}
	case OpDelete:
		delete(st.arts, a.Source)
	}
}
