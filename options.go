package fat

import (
	"errors"
	"math"

	"github.com/soypat/fat/internal/oem"
)

// MountOptions configures a call to FS.MountWithOptions. The zero value
// selects the IBM437 code page, read-write, local time, with PreserveCase
// and LazyLoad off; DefaultMountOptions turns those two on.
type MountOptions struct {
	// Encoding names the OEM code page used to translate short (8.3) names
	// to and from Unicode, e.g. "ibm437", "cp850", "cp865". Empty selects
	// the FAT/DOS default, IBM437.
	Encoding string
	// Offset is the byte offset of the volume's boot sector within the
	// block device, for images that embed a FAT volume inside a partition
	// table or a larger container. Must be a multiple of the block size.
	Offset int64
	// PreserveCase keeps mixed-case short names using the NT reserved
	// bits instead of forcing the stored 8.3 name to upper case. True in
	// DefaultMountOptions; the zero value leaves it off.
	PreserveCase bool
	// ReadOnly forces the mount read-only regardless of the Mode passed
	// to MountWithOptions.
	ReadOnly bool
	// UTC reports and interprets directory entry timestamps in UTC
	// instead of local time.
	UTC bool
	// LazyLoad is stored on the FS but not consulted: directories are
	// always read one entry at a time, with long names folded only for the
	// entry being read, whether it is set or not. There is no eager mode
	// that walks a whole directory at open time. True in
	// DefaultMountOptions.
	LazyLoad bool
}

// DefaultMountOptions returns the FAT/DOS default configuration: IBM437
// code page, case preservation and lazy directory loading on, local
// time, read-write. Start from this and flip individual fields rather
// than building a MountOptions{} literal, since the zero value of a bool
// field is "off" and two of these default to "on".
func DefaultMountOptions() MountOptions {
	return MountOptions{
		Encoding:     oem.DefaultName,
		PreserveCase: true,
		LazyLoad:     true,
	}
}

// MountWithOptions mounts the FAT file system like Mount, additionally
// applying opts. Pass the result of DefaultMountOptions with fields
// overridden, not a MountOptions{} literal, to keep the PreserveCase and
// LazyLoad defaults.
func (fsys *FS) MountWithOptions(bd BlockDevice, blockSize int, mode Mode, opts MountOptions) error {
	if mode&^(ModeRead|ModeWrite) != 0 {
		return errInvalidMode
	} else if blockSize > math.MaxUint16 {
		return errors.New("sector size too large")
	}
	encoding := opts.Encoding
	if encoding == "" {
		encoding = oem.DefaultName
	}
	if opts.ReadOnly {
		mode &^= ModeWrite
	}

	table, err := oem.Load(encoding)
	if err != nil {
		return &Error{Op: "mount", Kind: KindInvalidArg, Err: err}
	}
	fsys.codepage = table.OEM2Uni()
	fsys.exCvt = codepageUpperTable(encoding)
	fsys.utc = opts.UTC
	fsys.preserveCase = opts.PreserveCase
	fsys.lazyLoad = opts.LazyLoad

	var baseSector lba
	if opts.Offset != 0 {
		if opts.Offset%int64(blockSize) != 0 {
			return &Error{Op: "mount", Kind: KindInvalidArg, Err: errors.New("offset not aligned to block size")}
		}
		baseSector = lba(opts.Offset / int64(blockSize))
	}

	fr := fsys.mount_volume_at(bd, uint16(blockSize), uint8(mode), baseSector)
	return wrapErr("mount", "", fr)
}

// codepageUpperTable returns the SBCS upper-case folding table matching
// name, falling back to the IBM437 table (_tblCT437) for any code page
// without its own entry, since every FAT/DOS code page folds its 7-bit
// ASCII range identically and only differs in the upper half used by
// fsys.exCvt.
func codepageUpperTable(name string) []byte {
	switch name {
	case "cp850":
		return _tblCT850[:]
	case "cp852":
		return _tblCT852[:]
	case "cp855":
		return _tblCT855[:]
	case "cp860":
		return _tblCT860[:]
	case "cp862":
		return _tblCT862[:]
	case "cp863":
		return _tblCT863[:]
	case "cp865":
		return _tblCT865[:]
	case "cp866":
		return _tblCT866[:]
	default:
		return _tblCT437[:]
	}
}
