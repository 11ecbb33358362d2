package batch

import (
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"github.com/flarebyte/clipper/internal/fault"
)

// ReadText loads a whole file and rejects content that is not text. Errors
// wrap fault.ErrFileRead.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", fault.ErrFileRead, err)
	}
	if !isText(data) {
		return "", fmt.Errorf("%w: %s: content is %s, not text", fault.ErrFileRead, path, mimetype.Detect(data).String())
	}
	return string(data), nil
}

func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
