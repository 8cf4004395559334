package loadkit

import (
	"bufio"
	"fmt"
	"io"
)

// WriteTargets writes one "GET http://<host>/short/<id>" line per read case,
// in the plain target format load generators such as vegeta accept.
func WriteTargets(w io.Writer, reads []ReadCase, host, sep string) error {
	const op = "loadkit.WriteTargets"

	bw := bufio.NewWriter(w)

	for _, rc := range reads {
		id, err := ParseID(rc.Key, sep)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if _, err := fmt.Fprintf(bw, "GET http://%s/short/%s\n", host, id); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
