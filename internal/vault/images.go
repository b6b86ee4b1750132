package vault

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/inkwell-ai/inkwell/internal/convo"
)

// DefaultMaxImageBytes caps inline images at 5 MB, the API limit for
// base64 image blocks.
const DefaultMaxImageBytes = 5 << 20

// Images loads image references from user turns into inline base64
// content. Relative references resolve through the vault's search
// paths.
type Images struct {
	Vault    *Vault
	MaxBytes int64 // 0 means DefaultMaxImageBytes
}

// ResolveImage reads an image file, sniffs it for a supported format
// (png, jpeg, gif, webp) and returns it base64-encoded. Anything else,
// or a file over the size cap, is an error the caller reports and
// skips.
func (im Images) ResolveImage(path string) (convo.Image, error) {
	resolved := path
	if !filepath.IsAbs(path) {
		p, ok := im.Vault.ResolvePath(path, "")
		if !ok {
			return convo.Image{}, fmt.Errorf("cannot find image %s", path)
		}
		resolved = p
	}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		return convo.Image{}, err
	}
	limit := im.MaxBytes
	if limit == 0 {
		limit = DefaultMaxImageBytes
	}
	if int64(len(raw)) > limit {
		return convo.Image{}, fmt.Errorf("image %s is %d bytes, over the %d byte limit", path, len(raw), limit)
	}
	mediaType := http.DetectContentType(raw)
	switch mediaType {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
	default:
		return convo.Image{}, fmt.Errorf("unsupported image type %s for %s", mediaType, path)
	}
	return convo.Image{
		MediaType: mediaType,
		Data:      base64.StdEncoding.EncodeToString(raw),
	}, nil
}
