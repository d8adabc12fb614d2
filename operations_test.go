package fat

import "testing"

// formatAndMount formats a fresh volume of the given size and format, then
// mounts it read-write, following the same Formatter.Format+mount_volume
// sequence initTestFATWithLogger uses for the fuzzer.
func formatAndMount(t *testing.T, numBlocks int, format Format, label string) (*FS, *BlockByteSlice) {
	t.Helper()
	const blockSize = 512
	dev, err := NewBlockByteSlice(blockSize, numBlocks)
	if err != nil {
		t.Fatal(err)
	}
	var fmtr Formatter
	err = fmtr.Format(dev, blockSize, numBlocks, FormatConfig{Label: label, Format: format})
	if err != nil {
		t.Fatal(err)
	}
	var fs FS
	attachLogger(&fs)
	fr := fs.mount_volume(dev, blockSize, faRead|faWrite)
	if fr != frOK {
		t.Fatal(fr.Error())
	}
	return &fs, dev
}

// TestFormatFAT12VolumeLabel covers spec scenario S1: formatting a 2MiB
// image as FAT12 with a label yields a mountable volume whose only root
// directory content is that volume label.
func TestFormatFAT12VolumeLabel(t *testing.T) {
	const numBlocks = 2 * 1024 * 1024 / 512 // 2MiB of 512-byte blocks.
	fs, _ := formatAndMount(t, numBlocks, FormatFAT12, "FAT12TEST")

	label, err := fs.VolumeLabel()
	if err != nil {
		t.Fatal(err)
	}
	if label != "FAT12TEST" {
		t.Fatalf("got label %q, want %q", label, "FAT12TEST")
	}

	var dp Dir
	err = fs.OpenDir(&dp, "/")
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	err = dp.ForEachFile(func(fi *FileInfo) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected a freshly formatted root to contain no regular entries besides the volume label, got %d", count)
	}
}

// TestFormatSelectsFATWidth checks selectFATType's size-based auto-selection
// used when FormatConfig.Format is left zero.
func TestFormatSelectsFATWidth(t *testing.T) {
	cases := []struct {
		blocks int
		want   Format
	}{
		{blocks: 4000, want: FormatFAT12},
		{blocks: 200_000, want: FormatFAT16},
		{blocks: 3_000_000, want: FormatFAT32},
	}
	for _, c := range cases {
		got := selectFATType(c.blocks)
		if got != c.want {
			t.Errorf("selectFATType(%d) = %v, want %v", c.blocks, got, c.want)
		}
	}
}

// TestMkdirRemoveRmdir exercises directory creation and removal against a
// freshly formatted FAT32 volume.
func TestMkdirRemoveRmdir(t *testing.T) {
	fs, _ := formatAndMount(t, 200_000, FormatFAT32, "MKDIRTEST")

	if err := fs.Mkdir("/sub"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Mkdir("/sub"); err == nil {
		t.Fatal("expected error creating the same directory twice")
	}

	fi, err := fs.Stat("/sub")
	if err != nil {
		t.Fatal(err)
	}
	if !fi.IsDir() {
		t.Fatal("expected /sub to be reported as a directory")
	}

	var fp File
	if err := fs.OpenFile(&fp, "/sub/file.txt", ModeRW|ModeCreateNew); err != nil {
		t.Fatal(err)
	}
	if _, err := fp.Write([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if err := fp.Close(); err != nil {
		t.Fatal(err)
	}

	if err := fs.Rmdir("/sub"); err == nil {
		t.Fatal("expected Rmdir to fail on a non-empty directory")
	}
	if err := fs.Remove("/sub/file.txt"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Rmdir("/sub"); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Stat("/sub"); err == nil {
		t.Fatal("expected /sub to no longer exist")
	}
}

// TestRename covers moving a file between directories, and moving a
// directory to a new parent (which runs the ".." fix-up; the ".." entry
// itself is not read back).
func TestRename(t *testing.T) {
	fs, _ := formatAndMount(t, 200_000, FormatFAT32, "RENAMETEST")

	if err := fs.Mkdir("/src"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Mkdir("/dst"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Mkdir("/src/moved"); err != nil {
		t.Fatal(err)
	}

	var fp File
	if err := fs.OpenFile(&fp, "/src/a.txt", ModeRW|ModeCreateNew); err != nil {
		t.Fatal(err)
	}
	if _, err := fp.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := fp.Close(); err != nil {
		t.Fatal(err)
	}

	if err := fs.Rename("/src/a.txt", "/dst/b.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Stat("/src/a.txt"); err == nil {
		t.Fatal("expected old path to be gone after rename")
	}
	fi, err := fs.Stat("/dst/b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != 5 {
		t.Fatalf("got size %d, want 5", fi.Size())
	}

	// Move a directory across parents and confirm it is still usable at its
	// new path: creating a file inside it afterward requires the moved
	// entry to carry the directory's own starting cluster intact.
	if err := fs.Rename("/src/moved", "/dst/moved"); err != nil {
		t.Fatal(err)
	}
	if err := fs.OpenFile(&fp, "/dst/moved/c.txt", ModeRW|ModeCreateNew); err != nil {
		t.Fatal(err)
	}
	if err := fp.Close(); err != nil {
		t.Fatal(err)
	}
}

// TestTruncateToZeroReleasesChain covers truncating a file to 0 bytes:
// the whole chain, first cluster included, is released, the in-memory
// starting cluster reads 0, and the reopened file reads back empty - not
// a dangling pointer into a freed chain.
func TestTruncateToZeroReleasesChain(t *testing.T) {
	fs, _ := formatAndMount(t, 200_000, FormatFAT32, "TRUNCTEST")

	var fp File
	if err := fs.OpenFile(&fp, "/big.bin", ModeRW|ModeCreateNew); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 3*int(fs.csize)*int(fs.ssize)) // Span several clusters.
	for i := range buf {
		buf[i] = byte(i)
	}
	if _, err := fp.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := fp.Close(); err != nil {
		t.Fatal(err)
	}

	if err := fs.OpenFile(&fp, "/big.bin", ModeRW); err != nil {
		t.Fatal(err)
	}
	firstClust := fp.obj.sclust
	if firstClust < 2 {
		t.Fatalf("file has no allocated first cluster before truncate: %d", firstClust)
	}
	if err := fp.Truncate(0); err != nil {
		t.Fatal(err)
	}
	if fp.obj.sclust != 0 {
		t.Fatalf("in-memory sclust should read 0 after truncate-to-zero, got %d", fp.obj.sclust)
	}
	if err := fp.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen: the on-disk entry must show the file as empty, not dangling.
	if err := fs.OpenFile(&fp, "/big.bin", ModeRead); err != nil {
		t.Fatal(err)
	}
	n, err := fp.Read(make([]byte, 16))
	if n != 0 || err == nil {
		t.Fatalf("expected a truncated-to-zero file to read back empty, got n=%d err=%v", n, err)
	}
	if fp.obj.objsize != 0 {
		t.Fatalf("got size %d, want 0", fp.obj.objsize)
	}
	if err := fp.Close(); err != nil {
		t.Fatal(err)
	}
}
