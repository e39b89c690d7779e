package units

import (
	"errors"
	"fmt"
	"io"
)

const DefaultMaxDecodedBytes = 256 << 20

type Limits struct {
	// MaxDecodedBytes bounds every decompressed payload.
	MaxDecodedBytes int64
}

// Max is the effective cap.
func (l Limits) Max() int64 {
	if l.MaxDecodedBytes <= 0 {
		return DefaultMaxDecodedBytes
	}
	return l.MaxDecodedBytes
}

// ReadAll drains r, failing with MalformedField once the limit is exceeded.
// expected is a size hint from the container, or -1.
func (l Limits) ReadAll(format Format, offset int, r io.Reader, expected int64) ([]byte, error) {
	limit := l.Max()
	if expected > limit {
		return nil, Errorf(format, MalformedField, offset,
			"declared size %d exceeds limit %d", expected, limit)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		kind := MalformedField
		if errors.Is(err, io.ErrUnexpectedEOF) {
			kind = Truncated
		}
		return nil, &ParseError{
			Format: format,
			Kind:   kind,
			Offset: offset,
			Reason: "decompress",
			Err:    err,
		}
	}
	if int64(len(data)) > limit {
		return nil, Errorf(format, MalformedField, offset,
			"decompressed size exceeds limit %d", limit)
	}
	return data, nil
}

func (l Limits) String() string {
	return fmt.Sprintf("max decoded bytes %d", l.Max())
}
