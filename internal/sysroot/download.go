package sysroot

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/DataDog/zstd"
	"github.com/kjk/lzma"
	"github.com/xi2/xz"

	"github.com/compis-build/compis/internal/coerr"
)

// MirrorURL names a base URL for prebuilt sysroot payloads, laid out as
// {MirrorURL}/{target}/{component}.tar.<ext>. Nothing in this package reads
// it: EnsureBuilt always builds components locally and never calls
// fetchComponent. Modeled on distri's own remote-artifact-first philosophy
// (internal/build/build.go's downloadHTTP path) adapted from package
// artifacts to sysroot archives.
var MirrorURL string

// fetchComponent downloads url into destDir, transparently decompressing
// according to the URL's extension. Codec selection mirrors ratt's
// multi-codec .deb/.dsc fetch path (Debian-ratt go.mod pulls in zstd, xz,
// and lzma for exactly this reason: different mirrors compress their
// archives differently).
func fetchComponent(url, destDir string) error {
	resp, err := http.Get(url)
	if err != nil {
		return coerr.Wrap("fetch "+url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return coerr.Wrapf(coerr.NotFound, "fetch %s: HTTP %d", url, resp.StatusCode)
	}

	r, err := decompressReader(url, resp.Body)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return coerr.Wrap("mkdir "+destDir, err)
	}
	out := filepath.Join(destDir, filepath.Base(strings.TrimSuffix(url, filepath.Ext(url))))
	f, err := os.Create(out)
	if err != nil {
		return coerr.Wrap("create "+out, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return coerr.Wrap("decompress "+url, err)
	}
	return nil
}

// decompressReader wraps body in the decoder matching url's extension:
// .zst via zstd (the common case for modern mirrors), .xz and .lzma as
// fallback decoders for legacy mirrors.
func decompressReader(url string, body io.Reader) (io.Reader, error) {
	switch {
	case strings.HasSuffix(url, ".zst"):
		return zstd.NewReader(body), nil
	case strings.HasSuffix(url, ".xz"):
		r, err := xz.NewReader(body, 0)
		if err != nil {
			return nil, coerr.Wrap("xz: "+url, err)
		}
		return r, nil
	case strings.HasSuffix(url, ".lzma"):
		return lzma.NewReader(body), nil
	default:
		return body, nil
	}
}
