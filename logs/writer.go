package logs

import (
	"io"
	"os"

	"github.com/reusee/relic/cmds"
)

type Writer io.Writer

var logFileFlag = cmds.Var[string]("-log-file")

// Writer is stderr, or the file named by -log-file opened for appending.
func (Module) Writer() Writer {
	if path := *logFileFlag; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			return f
		}
		os.Stderr.WriteString("open log file: " + err.Error() + "\n")
	}
	return os.Stderr
}
