package fat

import (
	"encoding/binary"
	"errors"
	"strings"
)

type Format uint8

const (
	_FormatUnknown Format = iota
	FormatFAT12
	FormatFAT16
	FormatFAT32
	FormatExFAT
)

type Formatter struct {
	window     []byte
	windowaddr lba
	// block device is temporarily used by the formatter to read/write blocks.
	bd BlockDevice
}

type FormatConfig struct {
	Label string
	// ClusterSize is the size of a FAT cluster in blocks.
	ClusterSize int
	// Format selects the FAT format to use. If not specified it is chosen
	// from the volume size by selectFATType.
	Format Format
	// Number of reserved blocks for FAT tables. Either 1 or 2. 0 defaults to 2.
	// NumberOfFATs uint8
}

// FormatVolume formats bd as a fresh FAT volume using a throwaway Formatter.
// It is the package-level convenience entry point; repeated formatting
// of multiple volumes from one call site should reuse a single
// Formatter instead, to reuse its window buffer.
func FormatVolume(bd BlockDevice, blocksize, fsSizeInBlocks int, cfg FormatConfig) error {
	var f Formatter
	return f.Format(bd, blocksize, fsSizeInBlocks, cfg)
}

func (f *Formatter) Format(bd BlockDevice, blocksize, fsSizeInBlocks int, cfg FormatConfig) error {
	if cfg.Format == 0 {
		cfg.Format = selectFATType(fsSizeInBlocks)
	}
	if blocksize < 512 || fsSizeInBlocks <= 32 || bd == nil {
		return errors.New("invalid Format argument")
	}
	if len(f.window) < blocksize {
		f.window = make([]byte, blocksize)
	}
	if cfg.Label == "" {
		cfg.Label = "tinygo.unnamed"
	}
	f.windowaddr = ^lba(0)
	f.bd = bd

	switch cfg.Format {
	case FormatFAT12, FormatFAT16:
		return f.formatFAT1x(bd, blocksize, fsSizeInBlocks, cfg)
	case FormatFAT32:
		return f.formatFAT32(bd, blocksize, fsSizeInBlocks, cfg)
	case FormatExFAT:
		return frUnsupported
	default:
		return frUnsupported
	}
}

// selectFATType picks a FAT width from volume size alone, the same way
// mkfs.fat auto-selects when not told otherwise: small volumes get
// FAT12, mid-sized volumes FAT16, anything past ~512MiB FAT32.
func selectFATType(fsSizeInBlocks int) Format {
	const (
		approx4MiB   = 8192    // 4MiB / 512B blocks.
		approx512MiB = 1048576 // 512MiB / 512B blocks.
	)
	switch {
	case fsSizeInBlocks <= approx4MiB:
		return FormatFAT12
	case fsSizeInBlocks <= approx512MiB:
		return FormatFAT16
	default:
		return FormatFAT32
	}
}

// Layout constants for the volumes formatFAT32 writes: 32 reserved sectors,
// FSInfo at sector 1, backup boot sector at sector 6 (mirroring the backup
// FSInfo at sector 7), 2 FAT copies, root directory starting at cluster 2.
const (
	fmtReservedSectors = 32
	fmtFSInfoSector     = 1
	fmtBackupBootSector = 6
	fmtNumberOfFATs     = 2
	fmtRootCluster      = 2
)

func (f *Formatter) formatFAT32(bd BlockDevice, blocksize, fsSizeInBlocks int, cfg FormatConfig) error {
	ssize := uint16(blocksize)
	spc := uint16(cfg.ClusterSize)
	if spc == 0 {
		spc = fmtDefaultClusterSize(fsSizeInBlocks)
	} else if spc == 0 || spc&(spc-1) != 0 || spc > 128 {
		return errors.New("cluster size must be a power of two, up to 128 blocks")
	}

	totalSectors := uint32(fsSizeInBlocks)
	if totalSectors <= fmtReservedSectors+2*fmtNumberOfFATs {
		return errors.New("volume too small to format")
	}

	// Sectors per FAT depends on the size of the data region, which in turn
	// depends on sectors per FAT: iterate to a fixed point the same way the
	// classic mkfs cluster-count/FAT-size sizing loop does.
	sectorsPerFAT := uint32(1)
	for i := 0; i < 16; i++ {
		dataSectors := totalSectors - fmtReservedSectors - fmtNumberOfFATs*sectorsPerFAT
		clusters := dataSectors/uint32(spc) + 2
		need := (clusters*4 + uint32(ssize) - 1) / uint32(ssize)
		if need == sectorsPerFAT {
			break
		}
		sectorsPerFAT = need
	}
	dataSectors := totalSectors - fmtReservedSectors - fmtNumberOfFATs*sectorsPerFAT
	clusters := dataSectors / uint32(spc)
	if clusters+2 >= clustMaxFAT32 {
		return errors.New("volume too large for FAT32 at this cluster size")
	} else if clusters < 2 {
		return errors.New("volume too small to hold a root directory cluster")
	}

	bsbuf := make([]byte, ssize)
	bs := biosParamBlock{data: bsbuf}
	bs.data[bsJmpBoot], bs.data[bsJmpBoot+1], bs.data[bsJmpBoot+2] = 0xEB, 0x58, 0x90
	bs.SetOEMName("GOFAT1.0")
	bs.SetSectorSize(ssize)
	bs.SetSectorsPerCluster(spc)
	bs.SetReservedSectors(fmtReservedSectors)
	bs.SetNumberOfFATs(fmtNumberOfFATs)
	bs.SetRootDirEntries(0) // FAT32 keeps no fixed-size root region; it lives in a cluster chain.
	bs.data[bpbMedia] = 0xF8
	bs.SetTotalSectors(totalSectors)
	bs.SetSectorsPerFAT(sectorsPerFAT)
	binary.LittleEndian.PutUint16(bs.data[bpbExtFlags32:], 0) // Mirroring enabled, FAT 0 active.
	binary.LittleEndian.PutUint16(bs.data[bpbFSVer32:], 0)
	bs.SetRootCluster(fmtRootCluster)
	binary.LittleEndian.PutUint16(bs.data[bpbFSInfo32:], fmtFSInfoSector)
	binary.LittleEndian.PutUint16(bs.data[bpbBkBootSec32:], fmtBackupBootSector)
	bs.data[bsDrvNum32] = 0x80
	bs.data[bsNTres32] = 0
	bs.data[bsBootSig32] = 0x29
	binary.LittleEndian.PutUint32(bs.data[bsVolID32:], fmtVolumeSerial(totalSectors, spc))
	bs.SetVolumeLabel(cfg.Label)
	copy(bs.data[bsFilSysType32:], "FAT32   ")
	binary.LittleEndian.PutUint16(bs.data[bs55AA:], 0xAA55)

	if err := f.writeSector(0, bs.data); err != nil {
		return err
	}
	if err := f.writeSector(int64(fmtBackupBootSector), bs.data); err != nil {
		return err
	}

	fsibuf := make([]byte, ssize)
	fsi := fsinfoSector{data: fsibuf}
	fsi.SetSignatures(0x41615252, 0x61417272, 0xAA550000)
	fsi.SetFreeClusterCount(clusters - 1) // Cluster 2 (the root directory) is already allocated.
	fsi.SetLastAllocatedCluster(fmtRootCluster)
	binary.LittleEndian.PutUint16(fsibuf[bs55AA:], 0xAA55)
	if err := f.writeSector(fmtFSInfoSector, fsibuf); err != nil {
		return err
	}
	if err := f.writeSector(int64(fmtBackupBootSector)+fmtFSInfoSector, fsibuf); err != nil {
		return err
	}

	fatbuf := make([]byte, ssize)
	fat := fat32Sector{data: fatbuf}
	fat.SetEntry(0, 0x0FFFFFF8) // Low byte mirrors the media descriptor by convention.
	fat.SetEntry(1, 0x0FFFFFFF)
	fat.SetEntry(fmtRootCluster, 0x0FFFFFFF) // Root directory is a single-cluster chain.
	fatBase := int64(fmtReservedSectors)
	blank := make([]byte, ssize)
	for copyIdx := 0; copyIdx < fmtNumberOfFATs; copyIdx++ {
		base := fatBase + int64(copyIdx)*int64(sectorsPerFAT)
		if err := f.writeSector(base, fatbuf); err != nil {
			return err
		}
		for s := int64(1); s < int64(sectorsPerFAT); s++ {
			if err := f.writeSector(base+s, blank); err != nil {
				return err
			}
		}
	}

	dataBase := fatBase + int64(fmtNumberOfFATs)*int64(sectorsPerFAT)
	if err := bd.EraseBlocks(dataBase, int64(spc)); err != nil {
		return err
	}
	rootSector := make([]byte, ssize)
	writeVolumeLabel(rootSector[0:32], cfg.Label)
	if err := f.writeSector(dataBase, rootSector); err != nil {
		return err
	}
	for s := int64(1); s < int64(spc); s++ {
		if err := f.writeSector(dataBase+s, blank); err != nil {
			return err
		}
	}
	return nil
}

// formatFAT1x writes a FAT12 or FAT16 volume: one reserved sector (the
// boot sector only, no FSInfo/backup boot sector), a fixed-size root
// directory region ahead of the cluster data area rather than FAT32's
// root-is-a-cluster-chain convention, and FAT entries packed at the
// type's native width (12 or 16 bits) instead of FAT32's 32-bit slots.
func (f *Formatter) formatFAT1x(bd BlockDevice, blocksize, fsSizeInBlocks int, cfg FormatConfig) error {
	const (
		reserved    = 1
		numFATs     = 2
		rootEntries = 512
	)
	is12 := cfg.Format == FormatFAT12
	bits := uint32(16)
	if is12 {
		bits = 12
	}

	ssize := uint16(blocksize)
	spc := uint16(cfg.ClusterSize)
	if spc == 0 {
		spc = fmtDefaultClusterSize(fsSizeInBlocks)
	} else if spc&(spc-1) != 0 || spc > 128 {
		return errors.New("cluster size must be a power of two, up to 128 blocks")
	}

	totalSectors := uint32(fsSizeInBlocks)
	rootDirSectors := uint32(rootEntries*32+int(ssize)-1) / uint32(ssize)
	if totalSectors <= reserved+numFATs+rootDirSectors {
		return errors.New("volume too small to format")
	}

	sectorsPerFAT := uint32(1)
	for i := 0; i < 16; i++ {
		dataSectors := totalSectors - reserved - numFATs*sectorsPerFAT - rootDirSectors
		clusters := dataSectors/uint32(spc) + 2
		need := (clusters*bits + 8*uint32(ssize) - 1) / (8 * uint32(ssize))
		if need == sectorsPerFAT {
			break
		}
		sectorsPerFAT = need
	}
	dataSectors := totalSectors - reserved - numFATs*sectorsPerFAT - rootDirSectors
	clusters := dataSectors / uint32(spc)
	if clusters < 2 {
		return errors.New("volume too small to hold a data cluster")
	} else if is12 && clusters+2 >= clustMaxFAT12 {
		return errors.New("too many clusters for FAT12; use FAT16 or a larger cluster size")
	} else if !is12 && clusters+2 >= clustMaxFAT16 {
		return errors.New("too many clusters for FAT16; use FAT32 or a larger cluster size")
	}

	bsbuf := make([]byte, ssize)
	bs := biosParamBlock{data: bsbuf}
	bs.data[bsJmpBoot], bs.data[bsJmpBoot+1], bs.data[bsJmpBoot+2] = 0xEB, 0x3C, 0x90
	bs.SetOEMName("GOFAT1.0")
	bs.SetSectorSize(ssize)
	bs.SetSectorsPerCluster(spc)
	bs.SetReservedSectors(reserved)
	bs.SetNumberOfFATs(numFATs)
	bs.SetRootDirEntries(rootEntries)
	bs.data[bpbMedia] = 0xF8
	bs.SetTotalSectors(totalSectors)
	binary.LittleEndian.PutUint16(bs.data[bpbFATSz16:], uint16(sectorsPerFAT))
	bs.data[bsDrvNum] = 0x80
	bs.data[bsNTres] = 0
	bs.data[bsBootSig] = 0x29
	binary.LittleEndian.PutUint32(bs.data[bsVolID:], fmtVolumeSerial(totalSectors, spc))
	n := copy(bs.data[bsVolLab:bsVolLab+11], cfg.Label)
	for i := n; i < 11; i++ {
		bs.data[bsVolLab+i] = ' '
	}
	label := "FAT16   "
	if is12 {
		label = "FAT12   "
	}
	copy(bs.data[bsFilSysType:], label)
	binary.LittleEndian.PutUint16(bs.data[bs55AA:], 0xAA55)
	if err := f.writeSector(0, bs.data); err != nil {
		return err
	}

	fatbuf := make([]byte, ssize)
	if is12 {
		fatbuf[0], fatbuf[1], fatbuf[2] = packFAT12(0x0FF8, 0x0FFF)
	} else {
		binary.LittleEndian.PutUint16(fatbuf[0:], 0xFFF8)
		binary.LittleEndian.PutUint16(fatbuf[2:], 0xFFFF)
	}
	fatBase := int64(reserved)
	blank := make([]byte, ssize)
	for copyIdx := 0; copyIdx < numFATs; copyIdx++ {
		base := fatBase + int64(copyIdx)*int64(sectorsPerFAT)
		if err := f.writeSector(base, fatbuf); err != nil {
			return err
		}
		for s := int64(1); s < int64(sectorsPerFAT); s++ {
			if err := f.writeSector(base+s, blank); err != nil {
				return err
			}
		}
	}

	rootBase := fatBase + int64(numFATs)*int64(sectorsPerFAT)
	rootSector := make([]byte, ssize)
	writeVolumeLabel(rootSector[0:32], cfg.Label)
	if err := f.writeSector(rootBase, rootSector); err != nil {
		return err
	}
	for s := int64(1); s < int64(rootDirSectors); s++ {
		if err := f.writeSector(rootBase+s, blank); err != nil {
			return err
		}
	}

	dataBase := rootBase + int64(rootDirSectors)
	dataBlocks := int64(totalSectors) - dataBase
	if dataBlocks > 0 {
		if err := bd.EraseBlocks(dataBase, dataBlocks); err != nil {
			return err
		}
	}
	return nil
}

// packFAT12 packs two 12-bit FAT12 entries into the 3 bytes they share,
// matching the interleaving every FAT12 reader/writer expects.
func packFAT12(e0, e1 uint16) (b0, b1, b2 byte) {
	b0 = byte(e0)
	b1 = byte((e1&0xF)<<4 | (e0>>8)&0xF)
	b2 = byte(e1 >> 4)
	return b0, b1, b2
}

// fmtDefaultClusterSize picks a sectors-per-cluster value following the
// same size brackets as the classic mkfs default table, scaled for a
// 512-byte logical block.
func fmtDefaultClusterSize(fsSizeInBlocks int) uint16 {
	switch {
	case fsSizeInBlocks <= 532_480: // <= 260MiB.
		return 1
	case fsSizeInBlocks <= 16_777_216: // <= 8GiB.
		return 8
	case fsSizeInBlocks <= 33_554_432: // <= 16GiB.
		return 16
	case fsSizeInBlocks <= 67_108_864: // <= 32GiB.
		return 32
	default:
		return 64
	}
}

// fmtVolumeSerial derives a volume serial number from the volume's own
// geometry so repeated formats of the same size are reproducible, instead
// of reaching for a clock or RNG this package otherwise avoids entirely.
func fmtVolumeSerial(totalSectors uint32, spc uint16) uint32 {
	return totalSectors*2654435761 + uint32(spc)
}

// writeVolumeLabel plants a single volume-label directory entry (attribute
// amVOL, no data cluster) into the first 32 bytes of entry, the same slot
// Mkdir's writeDirEntry targets for a fresh directory's "." entry. The name
// is upper-cased and space-padded to 11 bytes (SetVolumeLabel pads the
// BPB's own copy the same way but does not upper-case it); the timestamp
// fields are left at zero,
// matching FS.time()'s stub (this package has no clock either).
func writeVolumeLabel(entry []byte, label string) {
	name := strings.ToUpper(label)
	n := copy(entry[dirNameOff:dirNameOff+11], name)
	for i := n; i < 11; i++ {
		entry[dirNameOff+i] = ' '
	}
	entry[dirAttrOff] = amVOL
}

// writeSector writes a single logical sector at the given sector offset,
// using the Formatter's own block device rather than the move_window
// read-modify-write cache, since Format always writes whole freshly
// computed sectors and never needs to preserve existing contents.
func (f *Formatter) writeSector(sector int64, data []byte) error {
	_, err := f.bd.WriteBlocks(data, sector)
	return err
}

func (f *Formatter) move_window(addr lba) error {
	if addr != f.windowaddr {
		if _, err := f.bd.ReadBlocks(f.window, int64(addr)); err != nil {
			return err
		}
		f.windowaddr = addr
	}
	return nil
}
