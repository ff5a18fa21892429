package staging

import "errors"

var (
	ErrNotStaged  = errors.New("file is not staged")
	ErrGenerating = errors.New("thumbnail generation still in progress")
)
