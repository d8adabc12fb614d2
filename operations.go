package fat

import (
	"encoding/binary"
	"log/slog"
	"strings"
)

// Mkdir creates a new, empty directory at path. The parent directory
// must already exist. Grounded on dir.register/obj.create_chain's
// existing call shape: the entry is registered in the parent, then a
// new one-cluster chain is allocated with create_chain(0) and cleared.
func (fsys *FS) Mkdir(path string) error {
	fsys.trace("Mkdir", slog.String("path", path))
	if fsys.perm&ModeWrite == 0 {
		return wrapErr("mkdir", path, frWriteProtected)
	}
	name := path + "\x00"
	var dj dir
	dj.obj.fs = fsys
	res := dj.follow_path(name)
	if res == frOK {
		return wrapErr("mkdir", path, frExist)
	} else if res != frNoFile {
		return wrapErr("mkdir", path, res)
	}

	pclst := dj.obj.sclust // Parent directory's own starting cluster (0 == root).
	res = dj.register()
	if res != frOK {
		return wrapErr("mkdir", path, res)
	}

	dcl := dj.obj.create_chain(0)
	switch dcl {
	case 0:
		return wrapErr("mkdir", path, frDenied)
	case 1:
		return wrapErr("mkdir", path, frIntErr)
	case maxu32:
		return wrapErr("mkdir", path, frDiskErr)
	}

	res = fsys.dir_clear(dcl)
	if res != frOK {
		return wrapErr("mkdir", path, res)
	}

	tm := fsys.time()
	fsys.writeDirEntry(fsys.win[0:32], ".          ", amDIR, dcl, 0, tm)
	fsys.writeDirEntry(fsys.win[32:64], "..         ", amDIR, pclst, 0, tm)
	fsys.wflag = 1
	res = fsys.sync_window()
	if res != frOK {
		return wrapErr("mkdir", path, res)
	}

	res = fsys.move_window(dj.sect)
	if res != frOK {
		return wrapErr("mkdir", path, res)
	}
	dj.dir[dirAttrOff] = amDIR
	binary.LittleEndian.PutUint32(dj.dir[dirCrtTimeOff:], tm)
	binary.LittleEndian.PutUint32(dj.dir[dirModTimeOff:], tm)
	fsys.st_clust(dj.dir, dcl)
	binary.LittleEndian.PutUint32(dj.dir[dirFileSizeOff:], 0)
	fsys.wflag = 1

	res = fsys.sync()
	if res != frOK {
		return wrapErr("mkdir", path, res)
	}
	fsys.id++ // Invalidate open files/dirs: directory layout just changed.
	return nil
}

// writeDirEntry writes a directory entry's name, attribute, starting
// cluster and size fields into a 32-byte directory entry slice, as used
// for the synthetic "." and ".." entries Mkdir plants in a fresh
// directory cluster. Timestamps go in both creation and modification
// fields, matching f_open's CreateAlways branch.
func (fsys *FS) writeDirEntry(e []byte, name string, attr byte, clst uint32, size uint32, tm uint32) {
	copy(e[dirNameOff:], name)
	e[dirAttrOff] = attr
	binary.LittleEndian.PutUint32(e[dirCrtTimeOff:], tm)
	binary.LittleEndian.PutUint32(e[dirModTimeOff:], tm)
	fsys.st_clust(e, clst)
	binary.LittleEndian.PutUint32(e[dirFileSizeOff:], size)
}

// Remove deletes the named file. It returns an error with Kind
// [KindIsDir] if path names a directory; use Rmdir for directories.
func (fsys *FS) Remove(path string) error {
	return fsys.unlink(path, false)
}

// Rmdir removes the named, empty directory. It returns an error with
// Kind [KindNotDir] if path does not name a directory, and [KindDirNotEmpty]
// if the directory contains anything besides "." and "..".
func (fsys *FS) Rmdir(path string) error {
	return fsys.unlink(path, true)
}

func (fsys *FS) unlink(path string, wantDir bool) error {
	op := "remove"
	if wantDir {
		op = "rmdir"
	}
	if fsys.perm&ModeWrite == 0 {
		return wrapErr(op, path, frWriteProtected)
	}
	name := path + "\x00"
	var dj dir
	dj.obj.fs = fsys
	res := dj.follow_path(name)
	if res != frOK {
		return wrapErr(op, path, res)
	}
	if dj.fn[nsFLAG]&(nsDOT|nsNONAME) != 0 {
		return wrapErr(op, path, frInvalidName)
	}
	isDir := dj.obj.attr&amDIR != 0
	if wantDir && !isDir {
		return newKindErr(op, path, KindNotDir)
	} else if !wantDir && isDir {
		return newKindErr(op, path, KindIsDir)
	} else if dj.obj.attr&amRDO != 0 {
		return wrapErr(op, path, frDenied)
	}

	clst := fsys.ld_clust(dj.dir)
	if isDir {
		var sub dir
		sub.obj = dj.obj
		sub.obj.sclust = clst
		res = sub.sdi(0)
		if res == frOK {
			res = sub.read(false)
		}
		if res == frOK {
			return newKindErr(op, path, KindDirNotEmpty)
		} else if res != frNoFile {
			return wrapErr(op, path, res)
		}
	}

	res = dj.unregister()
	if res != frOK {
		return wrapErr(op, path, res)
	}
	if clst != 0 {
		res = dj.obj.remove_chain(clst, 0)
		if res != frOK {
			return wrapErr(op, path, res)
		}
		fsys.last_clst = clst - 1
	}
	res = fsys.sync()
	if res != frOK {
		return wrapErr(op, path, res)
	}
	fsys.id++
	return nil
}

// unregister clears the directory entry dp currently refers to, along
// with any preceding long-name slots recorded in dp.blk_ofs, mirroring
// register()'s slot-walk in reverse. When the cleared run is the last
// occupied run in the table (immediately followed by the end-of-table
// marker), the run - and any tombstones left directly before it by an
// earlier unregister call - is zeroed to 0x00 instead of marked 0xE5,
// so the end-of-table boundary moves back instead of accumulating dead
// entries every future readdir has to walk past.
func (dp *dir) unregister() (fr fileResult) {
	fsys := dp.obj.fs
	fsys.trace("dir:unregister")
	last := dp.dptr
	start := last
	if dp.blk_ofs != maxu32 {
		start = dp.blk_ofs
	}

	trailing := false
	fr = dp.sdi(last)
	if fr == frOK {
		fr = dp.next(false)
		if fr == frNoFile {
			trailing = true
			fr = frOK
		} else if fr == frOK {
			fr = fsys.move_window(dp.sect)
			if fr == frOK && dp.dir[dirNameOff] == 0 {
				trailing = true
			}
		}
	}
	if fr != frOK {
		return fr
	}

	tomb := byte(mskDDEM)
	if trailing {
		tomb = 0
	}
	fr = dp.sdi(start)
	for fr == frOK {
		fr = fsys.move_window(dp.sect)
		if fr != frOK {
			break
		}
		dp.dir[dirNameOff] = tomb
		fsys.wflag = 1
		if dp.dptr >= last {
			break
		}
		fr = dp.next(false)
	}
	if fr != frOK {
		return fr
	}

	if trailing {
		for ofs := int64(start) - sizeDirEntry; ofs >= 0; ofs -= sizeDirEntry {
			fr = dp.sdi(uint32(ofs))
			if fr != frOK {
				break
			}
			fr = fsys.move_window(dp.sect)
			if fr != frOK {
				break
			}
			if dp.dir[dirNameOff] != mskDDEM {
				break
			}
			dp.dir[dirNameOff] = 0
			fsys.wflag = 1
		}
		fr = frOK
	}
	return fr
}

// Rename moves/renames the file or directory at oldpath to newpath.
// newpath must not already exist. Grounded on register/follow_path's
// existing call shape: the old entry's raw 32 bytes are copied out,
// unregistered from the old parent, and replanted under a freshly
// registered entry in the new parent; a renamed directory's own ".."
// entry is fixed up if it moved to a different parent.
func (fsys *FS) Rename(oldpath, newpath string) error {
	if fsys.perm&ModeWrite == 0 {
		return wrapErr("rename", oldpath, frWriteProtected)
	}
	var djo dir
	djo.obj.fs = fsys
	res := djo.follow_path(oldpath + "\x00")
	if res != frOK {
		return wrapErr("rename", oldpath, res)
	}
	if djo.fn[nsFLAG]&(nsDOT|nsNONAME) != 0 {
		return wrapErr("rename", oldpath, frInvalidName)
	}
	oldParent := djo.obj.sclust
	var saved [32]byte
	copy(saved[:], djo.dir[:32])
	clst := fsys.ld_clust(saved[:])
	attr := saved[dirAttrOff]

	res = djo.unregister()
	if res != frOK {
		return wrapErr("rename", oldpath, res)
	}

	var djn dir
	djn.obj.fs = fsys
	res = djn.follow_path(newpath + "\x00")
	if res == frOK {
		return wrapErr("rename", newpath, frExist)
	} else if res != frNoFile {
		return wrapErr("rename", newpath, res)
	}
	newParent := djn.obj.sclust
	res = djn.register()
	if res != frOK {
		return wrapErr("rename", newpath, res)
	}

	res = fsys.move_window(djn.sect)
	if res != frOK {
		return wrapErr("rename", newpath, res)
	}
	copy(djn.dir[dirAttrOff:dirAttrOff+1], saved[dirAttrOff:dirAttrOff+1])
	copy(djn.dir[dirNTresOff:dirNTresOff+1], saved[dirNTresOff:dirNTresOff+1])
	copy(djn.dir[dirCrtTimeOff:dirCrtTimeOff+4], saved[dirCrtTimeOff:dirCrtTimeOff+4])
	copy(djn.dir[dirModTimeOff:dirModTimeOff+4], saved[dirModTimeOff:dirModTimeOff+4])
	fsys.st_clust(djn.dir, clst)
	binary.LittleEndian.PutUint32(djn.dir[dirFileSizeOff:], binary.LittleEndian.Uint32(saved[dirFileSizeOff:]))
	fsys.wflag = 1

	if attr&amDIR != 0 && clst != 0 && oldParent != newParent {
		// Fix up the moved directory's own ".." entry.
		var sub dir
		sub.obj = djn.obj
		sub.obj.sclust = clst
		res = sub.sdi(sizeDirEntry) // Second entry in the directory is "..".
		if res == frOK {
			res = fsys.move_window(sub.sect)
		}
		if res == frOK {
			fsys.st_clust(sub.dir, newParent)
			fsys.wflag = 1
		}
		if res != frOK {
			return wrapErr("rename", newpath, res)
		}
	}

	res = fsys.sync()
	if res != frOK {
		return wrapErr("rename", newpath, res)
	}
	fsys.id++
	return nil
}

// VolumeLabel returns the label stored in the root directory's volume-label
// entry, or "" if the volume has none. Grounded on dir.read's vol parameter,
// which dir.f_readdir always calls with vol=false to hide the label entry
// from ordinary directory listings (it is not a file or subdirectory) -
// this is the one caller that asks for the opposite.
func (fsys *FS) VolumeLabel() (string, error) {
	var dj dir
	dj.obj.fs = fsys
	res := dj.sdi(0)
	if res != frOK {
		return "", wrapErr("volumelabel", "", res)
	}
	res = dj.read(true)
	if res == frNoFile {
		return "", nil
	} else if res != frOK {
		return "", wrapErr("volumelabel", "", res)
	}
	var name [11]byte
	copy(name[:], dj.dir[dirNameOff:dirNameOff+11])
	return strings.TrimRight(string(name[:]), " "), nil
}

// Stat returns file information for the named file or directory.
func (fsys *FS) Stat(path string) (FileInfo, error) {
	var finfo FileInfo
	finfo.utc = fsys.utc
	trimmed := trimSeparatorPrefix(path)
	if len(trimmed) == 0 {
		// Root directory: synthesize, since get_fileinfo only knows how
		// to describe an entry found inside a parent directory.
		finfo.fattrib = amDIR
		return finfo, nil
	}
	var dj dir
	dj.obj.fs = fsys
	res := dj.follow_path(path + "\x00")
	if res != frOK {
		return finfo, wrapErr("stat", path, res)
	}
	if dj.fn[nsFLAG]&nsNONAME != 0 {
		finfo.fattrib = amDIR
		return finfo, nil
	}
	dj.get_fileinfo(&finfo)
	finfo.utc = fsys.utc
	return finfo, nil
}

// Truncate changes the size of the file to n bytes. Shrinking releases
// the clusters beyond the new size via obj.remove_chain, the same
// primitive f_open's CreateAlways branch uses to free a file's old
// chain; growing past the current size is a no-op, since nothing in
// the engine zero-fills a gap today.
func (fp *File) Truncate(n int64) error {
	fr := fp.obj.validate()
	if fr != frOK {
		return wrapErr("truncate", "", fr)
	}
	fsys := fp.obj.fs
	if fp.flag&faWrite == 0 {
		return wrapErr("truncate", "", frWriteProtected)
	} else if fsys.perm&ModeWrite == 0 {
		return wrapErr("truncate", "", frWriteProtected)
	} else if n < 0 {
		return wrapErr("truncate", "", frInvalidParameter)
	} else if n >= fp.obj.objsize {
		return nil
	}

	fr = fsys.move_window(fp.dir_sect)
	if fr != frOK {
		return wrapErr("truncate", "", fr)
	}
	binary.LittleEndian.PutUint32(fp.dir_ptr[dirFileSizeOff:], uint32(n))
	fp.dir_ptr[dirAttrOff] |= amARC
	fsys.wflag = 1

	bcs := int64(fsys.csize) * int64(fsys.ssize)
	clst := fp.obj.sclust
	if n == 0 {
		if clst != 0 {
			// Zero the on-disk starting cluster while the window still
			// holds fp.dir_sect: remove_chain below walks the FAT and
			// moves the window elsewhere, which flushes this write first
			// since move_window syncs a dirty window before loading the
			// next sector. Without this the directory entry would keep
			// pointing at a chain that was just freed back into the FAT.
			fsys.st_clust(fp.dir_ptr, 0)
			fsys.wflag = 1
			fr = fp.obj.remove_chain(clst, 0)
			fp.obj.sclust = 0
		}
	} else {
		nclst := (n + bcs - 1) / bcs
		for i := int64(1); i < nclst && clst >= 2; i++ {
			clst = fp.obj.clusterstat(clst)
		}
		if clst >= 2 {
			next := fp.obj.clusterstat(clst)
			if next >= 2 && next < fsys.n_fatent {
				fr = fp.obj.remove_chain(next, clst)
			}
		}
	}
	if fr != frOK {
		return wrapErr("truncate", "", fr)
	}

	fp.obj.objsize = n
	if fp.fptr > n {
		fp.fptr = n
	}
	fp.flag |= faMODIFIED
	fr = fsys.sync()
	return wrapErr("truncate", "", fr)
}
