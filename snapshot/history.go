package snapshot

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// historyLineBytes is the assumed average entry size when seeking near the end.
const historyLineBytes = 100

// resolveHistoryPath picks the most recently modified history file among
// $HISTFILE, ~/.zsh_history and ~/.bash_history.
func resolveHistoryPath(home string) string {
	var candidates []string
	if hf := os.Getenv("HISTFILE"); hf != "" {
		candidates = append(candidates, hf)
	}
	if home != "" {
		candidates = append(candidates,
			filepath.Join(home, ".zsh_history"),
			filepath.Join(home, ".bash_history"),
		)
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestTime = path, info.ModTime()
		}
	}
	return best
}

// recentCommands returns up to n redacted commands from the history file at
// path, most recent first.
func recentCommands(path string, n int) ([]string, error) {
	if path == "" || n <= 0 {
		return nil, nil
	}
	// Read extra lines so blank and multi-line entries still leave n commands.
	lines, err := readLastLines(path, n*2)
	if err != nil {
		return nil, err
	}

	cmds := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(cmds) < n; i-- {
		if cmd := parseHistoryLine(lines[i]); cmd != "" {
			cmds = append(cmds, Redact(cmd))
		}
	}
	return cmds, nil
}

// parseHistoryLine strips the zsh extended history prefix
// (": <timestamp>:<duration>;<command>"). Bash lines are used as is.
func parseHistoryLine(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, ": ") {
		if i := strings.Index(line, ";"); i != -1 {
			return strings.TrimSpace(line[i+1:])
		}
	}
	return line
}

// readLastLines returns the final n lines of the file at path.
func readLastLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	if estimate := int64(n) * historyLineBytes; estimate < info.Size() {
		if _, err := f.Seek(-estimate, io.SeekEnd); err == nil {
			r := bufio.NewReader(f)
			r.ReadString('\n') // partial line
			lines := scanLines(r)
			if len(lines) >= n {
				return lines[len(lines)-n:], nil
			}
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}

	lines := scanLines(f)
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

func scanLines(r io.Reader) []string {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
