package rotate

import (
	"strings"
	"time"

	"github.com/logtrim-io/logtrim/internal/compress"
)

// Op identifies one kind of planned filesystem mutation.
type Op string

const (
	// OpShift renames one generation artifact to the next slot up.
	OpShift Op = "shift"
	// OpCopy copies the live file's bytes into generation 1.
	OpCopy Op = "copy"
	// OpTruncate empties the live file in place after a successful copy.
	OpTruncate Op = "truncate"
	// OpCompress compresses one plain generation artifact.
	OpCompress Op = "compress"
	// OpDelete removes one artifact that violates retention.
	OpDelete Op = "delete"
)

// Action is one planned mutation. Planners emit actions from the
// in-memory file state; the executor applies or merely reports them.
type Action struct {
	Op     Op
	Source string // path acted on
	Dest   string // rename, copy, or compress destination
	Gen    int    // generation the action produces or removes
	Ext    string // compression extension carried by the artifact
	Codec  string // codec name, set for compress actions
	Size   int64  // size of Source at planning time
	Reason string // retention rule behind a delete ("age", "count")
}

// planShift renumbers existing generations i to i+1 for i from
// maxGen-1 down to 1, preferring the compressed artifact when a slot
// holds both forms. Descending order keeps a rename from clobbering a
// generation that has not moved yet; the top slot's occupant is
// overwritten by the rename from below. Nothing is deleted here, and
// artifacts numbered beyond maxGen are left for the sweep.
func planShift(st *fileState, maxGen int) []Action {
	var actions []Action
	for i := maxGen - 1; i >= 1; i-- {
		art := st.at(i, true)
		if art == nil {
			art = st.at(i, false)
		}
		if art == nil {
			continue
		}
		actions = append(actions, Action{
			Op:     OpShift,
			Source: art.path,
			Dest:   generationPath(st.base, i+1, art.ext),
			Gen:    i + 1,
			Ext:    art.ext,
			Size:   art.size,
		})
	}
	return actions
}

// planSnapshot copies the live file into the now-free generation 1
// slot, then truncates the live file. Two separate actions: a failed
// truncate still leaves the completed copy standing and counted.
func planSnapshot(st *fileState) []Action {
	return []Action{
		{Op: OpCopy, Source: st.base, Dest: generationPath(st.base, 1, ""), Gen: 1, Size: st.size},
		{Op: OpTruncate, Source: st.base, Size: st.size},
	}
}

// planCompress selects plain artifacts in generations 1 through maxGen
// that have no compressed counterpart at their number. Artifacts
// beyond maxGen are the sweep's to delete and are not worth
// compressing first.
func planCompress(st *fileState, maxGen int, codec compress.Codec) []Action {
	if codec == nil {
		return nil
	}
	var actions []Action
	for gen := 1; gen <= maxGen; gen++ {
		plain := st.at(gen, false)
		if plain == nil || st.at(gen, true) != nil {
			continue
		}
		actions = append(actions, Action{
			Op:     OpCompress,
			Source: plain.path,
			Dest:   generationPath(st.base, gen, codec.Ext()),
			Gen:    gen,
			Ext:    codec.Ext(),
			Codec:  codec.Name(),
			Size:   plain.size,
		})
	}
	return actions
}

// planSweep deletes artifacts older than the age limit or numbered
// beyond the generation limit. The two conditions are evaluated
// independently per artifact and combined with OR; no minimum number
// of generations is retained.
func planSweep(st *fileState, maxAge time.Duration, maxGen int, now time.Time) []Action {
	cutoff := now.Add(-maxAge)
	var actions []Action
	for _, art := range st.artifacts() {
		var reasons []string
		if art.modTime.Before(cutoff) {
			reasons = append(reasons, "age")
		}
		if art.gen > maxGen {
			reasons = append(reasons, "count")
		}
		if len(reasons) == 0 {
			continue
		}
		actions = append(actions, Action{
			Op:     OpDelete,
			Source: art.path,
			Gen:    art.gen,
			Ext:    art.ext,
			Size:   art.size,
			Reason: strings.Join(reasons, ","),
		})
	}
	return actions
}
