package syncer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// attributeSuffix closes a version attribute after the replaced value.
const attributeSuffix = `")]`

// RewriteAssemblyInfo copies r to w line by line, replacing the quoted value of
// every line that starts with one of prefixes by version.
// Trailing whitespace is trimmed and every line is terminated with "\n".
func RewriteAssemblyInfo(r io.Reader, w io.Writer, version string, prefixes []string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 1<<20)

	writer := bufio.NewWriter(w)

	for scanner.Scan() {
		line := strings.TrimRightFunc(scanner.Text(), unicode.IsSpace)

		for _, prefix := range prefixes {
			if prefix != "" && strings.HasPrefix(line, prefix) {
				line = prefix + version + attributeSuffix
			}
		}

		if _, err := writer.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write assembly info: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read assembly info: %w", err)
	}

	return writer.Flush()
}
