//go:build !windows

package links

import (
	"io/fs"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/types"
)

type unixPlatform struct{}

func newPlatform() platform {
	return unixPlatform{}
}

func (unixPlatform) linkType(_ string, info fs.FileInfo) (types.LinkType, bool) {
	if info.Mode()&fs.ModeSymlink != 0 {
		return types.LinkTypeSymbolicLink, true
	}
	return "", false
}

// Junctions only exist on NTFS
func (unixPlatform) junctionSupported(string) bool {
	return false
}

func (unixPlatform) createJunction(linkPath, _ string) error {
	return errors.Newf(errors.ErrLinkUnsupported, "junctions are not available on this platform: %s", linkPath)
}
