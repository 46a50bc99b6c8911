package errors

import "fmt"

// Discovery warnings. These never abort a run.

// WarnOversized reports a file skipped by the size cutoff.
func WarnOversized(url string, size, limit int64) string {
	return fmt.Sprintf("%s is %s, and won't be precached. Configure maximumFileSizeToCacheInBytes (currently %s) to change this limit.",
		url, FormatBytes(size), FormatBytes(limit))
}

// WarnNoMatches reports an empty discovery result.
func WarnNoMatches(dir string, patterns []string) string {
	return fmt.Sprintf("the glob patterns %q matched no files in %s; the precache manifest will be empty", patterns, dir)
}

// WarnMissingDirectory reports a glob directory that does not exist.
func WarnMissingDirectory(dir string) string {
	return fmt.Sprintf("the globDirectory %s does not exist; no files were precached", dir)
}

// WarnUnknownOption reports a configuration key that is not recognized.
func WarnUnknownOption(key string) string {
	return fmt.Sprintf("unknown configuration option %q was ignored", key)
}

// FormatBytes formats bytes as a human-readable string.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
