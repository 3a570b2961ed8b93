package inference

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	getter "github.com/hashicorp/go-getter"
	"github.com/pkg/errors"
)

const cacheDirName = "chicken-count"

func isRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// fetchModel resolves a model location to a local file path, downloading it
// into the user cache directory when the location is a remote URL. Remote
// fetches may be slow on first use; go-getter overwrites whatever is cached.
func fetchModel(ctx context.Context, location string) (string, error) {
	if !isRemote(location) {
		if _, err := os.Stat(location); err != nil {
			return "", errors.Wrapf(ErrModelLoad, "no model file at %s", location)
		}
		return location, nil
	}

	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(ErrModelLoad, "no usable cache directory for remote model")
	}
	cacheDir := filepath.Join(cacheRoot, cacheDirName)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", errors.Wrapf(ErrModelLoad, "cannot create %s", cacheDir)
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", errors.Wrapf(ErrModelLoad, "bad model URL %s", location)
	}
	dst := filepath.Join(cacheDir, filepath.Base(u.Path))
	client := &getter.Client{
		Ctx:  ctx,
		Src:  location,
		Dst:  dst,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return "", errors.Wrapf(ErrModelLoad, "cannot fetch %s: %v", location, err)
	}
	return dst, nil
}
