package csvio

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Block logs can carry a whole serialized order book on a single line.
const maxLineBytes = 32 * 1024 * 1024

// LogRecord is one line of an append-only block log: the block number and
// the raw payload that followed the first comma (typically JSON).
type LogRecord struct {
	Block   uint64
	Payload string
}

// StreamLog consumes a `block,payload` log line by line in a single
// forward pass, skipping the header. fn is called for every record; when
// stop returns true for a record the scan ends without calling fn on it.
// A line whose block number does not parse aborts the scan: silently
// skipped blocks would corrupt downstream gap filling.
func StreamLog(path string, fn func(LogRecord) error, stop func(LogRecord) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), maxLineBytes)

	first := true
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if first {
			first = false
			continue
		}
		rec, err := splitLogLine(line)
		if err != nil {
			return errors.Wrapf(err, "malformed log line in %s", path)
		}
		if stop != nil && stop(rec) {
			break
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return errors.Wrapf(sc.Err(), "reading %s", path)
}

func splitLogLine(line string) (LogRecord, error) {
	idx := strings.IndexByte(line, ',')
	if idx < 0 {
		return LogRecord{}, errors.Errorf("no payload column in %q", truncate(line))
	}
	block, err := strconv.ParseUint(strings.TrimSpace(line[:idx]), 10, 64)
	if err != nil {
		return LogRecord{}, errors.Wrapf(err, "unparsable block number in %q", truncate(line))
	}
	return LogRecord{Block: block, Payload: line[idx+1:]}, nil
}

func truncate(s string) string {
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}
