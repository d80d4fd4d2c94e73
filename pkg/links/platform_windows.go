//go:build windows

package links

import (
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf16"

	"golang.org/x/sys/windows"

	"github.com/arthur-debert/relocator/pkg/types"
)

const (
	fsctlSetReparsePoint      = 0x000900A4
	fileSupportsReparsePoints = 0x00000080

	// REPARSE_DATA_BUFFER header plus the mount point header
	reparseHeaderSize    = 8
	mountPointHeaderSize = 8
)

type windowsPlatform struct{}

func newPlatform() platform {
	return windowsPlatform{}
}

// linkType reads the reparse tag, since Lstat does not distinguish
// junctions from other reparse points
func (windowsPlatform) linkType(path string, _ fs.FileInfo) (types.LinkType, bool) {
	tag, err := reparseTag(path)
	if err != nil {
		return "", false
	}
	switch tag {
	case windows.IO_REPARSE_TAG_MOUNT_POINT:
		return types.LinkTypeJunction, true
	case windows.IO_REPARSE_TAG_SYMLINK:
		return types.LinkTypeSymbolicLink, true
	default:
		return "", false
	}
}

func reparseTag(path string) (uint32, error) {
	p, err := windows.UTF16PtrFromString(filepath.Clean(path))
	if err != nil {
		return 0, err
	}
	var data windows.Win32finddata
	h, err := windows.FindFirstFile(p, &data)
	if err != nil {
		return 0, err
	}
	_ = windows.FindClose(h)
	if data.FileAttributes&windows.FILE_ATTRIBUTE_REPARSE_POINT == 0 {
		return 0, nil
	}
	return data.Reserved0, nil
}

// junctionSupported checks the volume holding path for reparse point support
func (windowsPlatform) junctionSupported(path string) bool {
	volume := filepath.VolumeName(path)
	if volume == "" {
		return false
	}
	root, err := windows.UTF16PtrFromString(volume + `\`)
	if err != nil {
		return false
	}
	var flags uint32
	fsName := make([]uint16, windows.MAX_PATH+1)
	if err := windows.GetVolumeInformation(root, nil, 0, nil, nil, &flags, &fsName[0], uint32(len(fsName))); err != nil {
		return false
	}
	return flags&fileSupportsReparsePoints != 0 && windows.UTF16ToString(fsName) == "NTFS"
}

// createJunction makes an empty directory at linkPath and turns it into a
// mount point reparse point for targetPath
func (windowsPlatform) createJunction(linkPath, targetPath string) error {
	if err := os.Mkdir(linkPath, 0755); err != nil {
		return err
	}
	if err := setMountPoint(linkPath, targetPath); err != nil {
		_ = os.Remove(linkPath)
		return err
	}
	return nil
}

func setMountPoint(linkPath, targetPath string) error {
	substitute := utf16.Encode([]rune(`\??\` + targetPath))
	printName := utf16.Encode([]rune(targetPath))

	// substitute name, NUL, print name, NUL
	pathBuf := make([]uint16, 0, len(substitute)+len(printName)+2)
	pathBuf = append(pathBuf, substitute...)
	pathBuf = append(pathBuf, 0)
	pathBuf = append(pathBuf, printName...)
	pathBuf = append(pathBuf, 0)

	dataLen := mountPointHeaderSize + len(pathBuf)*2
	buf := make([]byte, reparseHeaderSize+dataLen)
	binary.LittleEndian.PutUint32(buf[0:], windows.IO_REPARSE_TAG_MOUNT_POINT)
	binary.LittleEndian.PutUint16(buf[4:], uint16(dataLen))
	binary.LittleEndian.PutUint16(buf[8:], 0)
	binary.LittleEndian.PutUint16(buf[10:], uint16(len(substitute)*2))
	binary.LittleEndian.PutUint16(buf[12:], uint16((len(substitute)+1)*2))
	binary.LittleEndian.PutUint16(buf[14:], uint16(len(printName)*2))
	for i, c := range pathBuf {
		binary.LittleEndian.PutUint16(buf[16+i*2:], c)
	}

	name, err := windows.UTF16PtrFromString(linkPath)
	if err != nil {
		return err
	}
	h, err := windows.CreateFile(name, windows.GENERIC_WRITE, 0, nil, windows.OPEN_EXISTING,
		windows.FILE_FLAG_OPEN_REPARSE_POINT|windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return err
	}
	defer func() { _ = windows.CloseHandle(h) }()

	var returned uint32
	return windows.DeviceIoControl(h, fsctlSetReparsePoint, &buf[0], uint32(len(buf)), nil, 0, &returned, nil)
}
