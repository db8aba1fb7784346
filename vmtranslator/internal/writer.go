package internal

import (
	"bufio"
	"bytes"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
)

// WriteLines writes one assembler line per line to w.
func WriteLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			return errors.Wrap(err, "write lines")
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "write lines")
		}
	}
	return errors.Wrap(bw.Flush(), "write lines")
}

// SaveTo writes lines to the file at path in one go, replacing its content.
func SaveTo(path string, lines []string) error {
	buf := bytes.Buffer{}
	if err := WriteLines(&buf, lines); err != nil {
		return err
	}
	return errors.Wrapf(ioutil.WriteFile(path, buf.Bytes(), 0666), "save to %s", path)
}
