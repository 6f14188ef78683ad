package utils

import (
	"io"
)

// DrainAndClose discards up to limit bytes of an HTTP body before closing
// it so the underlying connection can be reused.
func DrainAndClose(body io.ReadCloser, limit int64) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, limit))
	_ = body.Close()
}
