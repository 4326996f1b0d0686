package portfolio

import "io"

// LimitUpload wraps r so that reading past MaxUploadSize fails with a
// validation error. Backends use it when the declared size is unknown or
// untrusted.
func LimitUpload(r io.Reader) io.Reader {
	return &limitedReader{r: r, remaining: MaxUploadSize}
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, invalid("file", "file exceeds %d bytes", MaxUploadSize)
	}
	// Allow one byte past the limit so an oversized stream is detected.
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, invalid("file", "file exceeds %d bytes", MaxUploadSize)
	}
	return n, err
}
