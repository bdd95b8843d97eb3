package rotate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/logtrim-io/logtrim/internal/compress"
)

// generationPath returns the artifact path for generation gen of base,
// carrying ext when the artifact is compressed: base.N or base.N<ext>.
func generationPath(base string, gen int, ext string) string {
	return fmt.Sprintf("%s.%d%s", base, gen, ext)
}

// parseGeneration extracts the generation number and compression
// extension from an artifact filename belonging to base. Only names of
// the form base.N or base.N<ext> with a registered compression
// extension parse; anything else is not a generation artifact and is
// never counted or swept.
func parseGeneration(base, name string) (gen int, ext string, ok bool) {
	rest, found := strings.CutPrefix(name, base+".")
	if !found || rest == "" {
		return 0, "", false
	}

	digits := rest
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		digits = rest[:i]
		ext = rest[i:]
		if _, ok := compress.ForExt(ext); !ok {
			return 0, "", false
		}
	}

	if !allDigits(digits) {
		return 0, "", false
	}
	gen, err := strconv.Atoi(digits)
	if err != nil || gen < 1 {
		return 0, "", false
	}
	return gen, ext, true
}

// looksRotated reports whether name carries a generation suffix for any
// base. Discovery uses it to keep rotation artifacts out of the
// candidate set when a glob such as "*" would otherwise match them.
func looksRotated(name string) bool {
	for _, ext := range compress.Extensions() {
		if rest, found := strings.CutSuffix(name, ext); found {
			name = rest
			break
		}
	}

	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return false
	}

	digits := name[i+1:]
	if !allDigits(digits) {
		return false
	}
	gen, err := strconv.Atoi(digits)
	return err == nil && gen >= 1
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
