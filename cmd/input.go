package main

import (
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// readText returns the text from --file when set ("-" reads stdin), or the
// joined positional args otherwise.
func readText(args []string, file string, stdin io.Reader) (string, error) {
	if file == "" {
		return strings.Join(args, " "), nil
	}
	if len(args) > 0 {
		return "", eris.New("pass the text either as arguments or with --file, not both")
	}
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", eris.Wrapf(err, "read %s", file)
	}
	return string(data), nil
}
