package rotate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerationPath(t *testing.T) {
	require.Equal(t, "/var/log/app.log.1", generationPath("/var/log/app.log", 1, ""))
	require.Equal(t, "/var/log/app.log.3.gz", generationPath("/var/log/app.log", 3, ".gz"))
	require.Equal(t, "/var/log/app.log.12.zst", generationPath("/var/log/app.log", 12, ".zst"))
}

func TestParseGeneration(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantGen int
		wantExt string
		wantOK  bool
	}{
		{name: "plain first generation", file: "app.log.1", wantGen: 1, wantExt: "", wantOK: true},
		{name: "plain double digit", file: "app.log.12", wantGen: 12, wantExt: "", wantOK: true},
		{name: "gzip artifact", file: "app.log.2.gz", wantGen: 2, wantExt: ".gz", wantOK: true},
		{name: "zstd artifact", file: "app.log.4.zst", wantGen: 4, wantExt: ".zst", wantOK: true},
		{name: "lz4 artifact", file: "app.log.7.lz4", wantGen: 7, wantExt: ".lz4", wantOK: true},
		{name: "snappy artifact", file: "app.log.3.sz", wantGen: 3, wantExt: ".sz", wantOK: true},
		{name: "leading zero still parses", file: "app.log.01", wantGen: 1, wantExt: "", wantOK: true},
		{name: "base itself", file: "app.log", wantOK: false},
		{name: "different base", file: "other.log.1", wantOK: false},
		{name: "generation zero", file: "app.log.0", wantOK: false},
		{name: "signed number", file: "app.log.+1", wantOK: false},
		{name: "negative number", file: "app.log.-1", wantOK: false},
		{name: "date suffix", file: "app.log.2024-01-02", wantOK: false},
		{name: "unknown extension", file: "app.log.1.bak", wantOK: false},
		{name: "staging leftover", file: "app.log.2.gz.tmp", wantOK: false},
		{name: "no number", file: "app.log.gz", wantOK: false},
		{name: "trailing dot", file: "app.log.", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, ext, ok := parseGeneration("app.log", tt.file)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.Equal(t, tt.wantGen, gen)
				require.Equal(t, tt.wantExt, ext)
			}
		})
	}
}

func TestLooksRotated(t *testing.T) {
	rotated := []string{
		"app.log.1",
		"app.log.10",
		"app.log.2.gz",
		"error.log.5.zst",
		"access.3.lz4",
	}
	for _, name := range rotated {
		require.True(t, looksRotated(name), "expected %q to look rotated", name)
	}

	live := []string{
		"app.log",
		"error.2025.log",
		"app.7z",
		"syslog",
		"app.log.gz",
		"app.log.backup",
		".hidden",
	}
	for _, name := range live {
		require.False(t, looksRotated(name), "expected %q to look live", name)
	}
}
