package uploads

import "errors"

var (
	ErrNotFound     = errors.New("upload entry not found")
	ErrNotRetryable = errors.New("only failed uploads can be retried")
)
