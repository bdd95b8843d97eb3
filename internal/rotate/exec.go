package rotate

import (
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/logtrim-io/logtrim/internal/compress"
	"github.com/logtrim-io/logtrim/internal/logging"
)

// applyResult reports the measurable outcome of one applied action.
type applyResult struct {
	// bytesFreed is the signed byte delta credited to the run. Known
	// for deletions in both modes; compression savings are measurable
	// only when the artifact is actually written.
	bytesFreed int64

	// destSize is the size of the artifact the action produced, or -1
	// when nothing was produced or the run is simulated.
	destSize int64
}

// executor performs planned actions against the filesystem, or in
// dry-run mode only reports them. All decision logic lives in the
// planners; the executor is deliberately mechanical so the two modes
// cannot drift apart.
type executor struct {
	fs  afero.Fs
	dry bool
	log *logging.Logger
}

func (x *executor) apply(a Action) (applyResult, error) {
	if x.dry {
		return x.report(a), nil
	}
	switch a.Op {
	case OpShift:
		return x.shift(a)
	case OpCopy:
		return x.copy(a)
	case OpTruncate:
		return x.truncate(a)
	case OpCompress:
		return x.compress(a)
	case OpDelete:
		return x.remove(a)
	}
	return applyResult{destSize: -1}, nil
}

// report logs the decision without touching the filesystem. Deletions
// still credit the artifact's planned size so simulated statistics
// line up with a real run.
func (x *executor) report(a Action) applyResult {
	res := applyResult{destSize: -1}
	switch a.Op {
	case OpShift:
		x.log.Infof("would rename", map[string]any{"from": a.Source, "to": a.Dest})
	case OpCopy:
		x.log.Infof("would copy", map[string]any{"from": a.Source, "to": a.Dest, "bytes": a.Size})
	case OpTruncate:
		x.log.Infof("would truncate", map[string]any{"file": a.Source})
	case OpCompress:
		x.log.Infof("would compress", map[string]any{"from": a.Source, "to": a.Dest, "codec": a.Codec})
	case OpDelete:
		x.log.Infof("would delete", map[string]any{"file": a.Source, "reason": a.Reason, "bytes": a.Size})
		res.bytesFreed = a.Size
	}
	return res
}

func (x *executor) shift(a Action) (applyResult, error) {
	res := applyResult{destSize: -1}
	if err := x.fs.Rename(a.Source, a.Dest); err != nil {
		return res, &OpError{Op: "shift", Path: a.Source, Err: err}
	}
	x.log.Debugf("renamed generation", map[string]any{"from": a.Source, "to": a.Dest})
	return res, nil
}

func (x *executor) copy(a Action) (applyResult, error) {
	res := applyResult{destSize: -1}

	info, err := x.fs.Stat(a.Source)
	if err != nil {
		return res, &OpError{Op: "copy", Path: a.Source, Err: err}
	}

	in, err := x.fs.Open(a.Source)
	if err != nil {
		return res, &OpError{Op: "copy", Path: a.Source, Err: err}
	}
	defer in.Close()

	out, err := x.fs.OpenFile(a.Dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return res, &OpError{Op: "copy", Path: a.Dest, Err: err}
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		x.fs.Remove(a.Dest)
		return res, &OpError{Op: "copy", Path: a.Dest, Err: err}
	}
	if err := out.Close(); err != nil {
		x.fs.Remove(a.Dest)
		return res, &OpError{Op: "copy", Path: a.Dest, Err: err}
	}

	// The snapshot keeps the source's timestamps so the age sweep sees
	// when the content was last written, not when it was rotated.
	if err := x.fs.Chtimes(a.Dest, info.ModTime(), info.ModTime()); err != nil {
		x.log.Warnf("keep timestamps", map[string]any{"file": a.Dest, "error": err.Error()})
	}

	res.destSize = n
	x.log.Debugf("copied into generation 1", map[string]any{"from": a.Source, "to": a.Dest, "bytes": n})
	return res, nil
}

func (x *executor) truncate(a Action) (applyResult, error) {
	res := applyResult{destSize: -1}

	f, err := x.fs.OpenFile(a.Source, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return res, &OpError{Op: "truncate", Path: a.Source, Err: err}
	}
	if err := f.Close(); err != nil {
		return res, &OpError{Op: "truncate", Path: a.Source, Err: err}
	}
	x.log.Debugf("truncated live file", map[string]any{"file": a.Source})
	return res, nil
}

func (x *executor) compress(a Action) (applyResult, error) {
	res := applyResult{destSize: -1}

	codec, err := compress.ForName(a.Codec)
	if err != nil {
		return res, &OpError{Op: "compress", Path: a.Source, Err: err}
	}

	info, err := x.fs.Stat(a.Source)
	if err != nil {
		return res, &OpError{Op: "compress", Path: a.Source, Err: err}
	}

	in, err := x.fs.Open(a.Source)
	if err != nil {
		return res, &OpError{Op: "compress", Path: a.Source, Err: err}
	}
	defer in.Close()

	// Stage next to the destination and rename into place, so a crash
	// mid-write never leaves a truncated artifact under the final name.
	tmp := a.Dest + ".tmp"
	out, err := x.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return res, &OpError{Op: "compress", Path: tmp, Err: err}
	}

	cw, err := codec.NewWriter(out, info.ModTime())
	if err != nil {
		out.Close()
		x.fs.Remove(tmp)
		return res, &OpError{Op: "compress", Path: tmp, Err: err}
	}
	if _, err := io.Copy(cw, in); err != nil {
		cw.Close()
		out.Close()
		x.fs.Remove(tmp)
		return res, &OpError{Op: "compress", Path: tmp, Err: err}
	}
	if err := cw.Close(); err != nil {
		out.Close()
		x.fs.Remove(tmp)
		return res, &OpError{Op: "compress", Path: tmp, Err: err}
	}
	if err := out.Sync(); err != nil {
		out.Close()
		x.fs.Remove(tmp)
		return res, &OpError{Op: "compress", Path: tmp, Err: err}
	}
	if err := out.Close(); err != nil {
		x.fs.Remove(tmp)
		return res, &OpError{Op: "compress", Path: tmp, Err: err}
	}

	if err := x.fs.Rename(tmp, a.Dest); err != nil {
		x.fs.Remove(tmp)
		return res, &OpError{Op: "compress", Path: a.Dest, Err: err}
	}
	if err := x.fs.Chtimes(a.Dest, info.ModTime(), info.ModTime()); err != nil {
		x.log.Warnf("keep timestamps", map[string]any{"file": a.Dest, "error": err.Error()})
	}

	compressedInfo, err := x.fs.Stat(a.Dest)
	if err != nil {
		return res, &OpError{Op: "compress", Path: a.Dest, Err: err}
	}

	// The compressed artifact exists before the original is unlinked;
	// at no point does the generation have neither form.
	if err := x.fs.Remove(a.Source); err != nil {
		return res, &OpError{Op: "compress", Path: a.Source, Err: err}
	}

	res.destSize = compressedInfo.Size()
	res.bytesFreed = info.Size() - compressedInfo.Size()
	x.log.Debugf("compressed generation", map[string]any{
		"from":  a.Source,
		"to":    a.Dest,
		"codec": a.Codec,
		"saved": res.bytesFreed,
	})
	return res, nil
}

func (x *executor) remove(a Action) (applyResult, error) {
	res := applyResult{destSize: -1}
	if err := x.fs.Remove(a.Source); err != nil {
		return res, &OpError{Op: "delete", Path: a.Source, Err: err}
	}
	res.bytesFreed = a.Size
	x.log.Debugf("deleted artifact", map[string]any{"file": a.Source, "reason": a.Reason, "bytes": a.Size})
	return res, nil
}
