package fat

const (
	maxu16 = 0xffff
	maxu32 = 0xffff_ffff
)

// accessmode is the internal file-open flag word. It is a plain alias for
// uint8 so the public Mode type and the internal engine share one
// representation without a conversion at every call site.
type accessmode = uint8

// File access flags, as passed to f_open. The low 6 bits mirror FatFs's
// FA_* constants; FA_MODIFIED/FA_DIRTY are engine-internal and never
// exposed through Mode, and FA_SEEKEND is exposed only as part of
// ModeOpenAppend.
const (
	faRead         accessmode = 0x01
	faWrite        accessmode = 0x02
	faOpenExisting accessmode = 0x00
	faCreateNew    accessmode = 0x04
	faCreateAlways accessmode = 0x08
	faOpenAlways   accessmode = 0x10
	faOpenAppend   accessmode = 0x30 // faOpenAlways | faSEEKEND

	faSEEKEND  accessmode = 0x20
	faMODIFIED accessmode = 0x40
	faDIRTY    accessmode = 0x80
)

// Directory entry attribute byte (DIR_Attr).
const (
	amRDO  byte = 0x01
	amHID  byte = 0x02
	amSYS  byte = 0x04
	amVOL  byte = 0x08
	amDIR  byte = 0x10
	amARC  byte = 0x20
	amLFN  byte = amRDO | amHID | amSYS | amVOL // 0x0F: marks a VFAT long-name slot.
	amMASK byte = 0x3F
)

// Short (8.3) directory entry field offsets, 32 bytes total.
const (
	dirNameOff       = 0  // 11-byte 8.3 name, space padded.
	dirAttrOff       = 11 // Attribute byte.
	dirNTresOff      = 12 // NT case-preservation flags (nsBODY|nsEXT).
	dirCrtTime10Off  = 13 // Creation time, tenths of a second.
	dirCrtTimeOff    = 14 // Creation time+date (4 bytes: time then date).
	dirLstAccDateOff = 18 // Last access date.
	dirFstClusHIOff  = 20 // High 16 bits of starting cluster (FAT32 only).
	dirModTimeOff    = 22 // Last write time+date (4 bytes: time then date).
	dirFstClusLOOff  = 26 // Low 16 bits of starting cluster.
	dirFileSizeOff   = 28 // File size in bytes.
)

// Long file name (VFAT) directory entry field offsets.
const (
	ldirOrdOff         = 0  // Sequence number (bit 6 set on the last/first-written slot).
	ldirAttrOff        = 11 // Always amLFN.
	ldirTypeOff        = 12 // Always 0 for VFAT.
	ldirChksumOff      = 13 // Checksum of the associated short name.
	ldirFstClusLO_Off  = 26 // Always 0 in a VFAT long-name slot.
)

// exFAT file/stream-extension directory entry field offsets. exFAT support
// is not implemented (see fstypeExFAT guards throughout); these exist only
// so the guarded dead branches that reference them still type-check.
const (
	xdirType     = 0
	xdirGenFlags = 33
	xdirFstClus  = 20
	xdirFileSize = 8
)
