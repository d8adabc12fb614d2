package fat

import (
	"errors"
	"fmt"
)

// BlockDeviceExtended is a BlockDevice that also knows its own size and
// block granularity. The in-memory fixtures below implement it. Mount and
// Format accept a plain BlockDevice and take the block size and volume
// size as explicit arguments; neither calls these extra methods.
type BlockDeviceExtended interface {
	BlockDevice
	Size() int64
	BlockSize() int
}

const blkmapsize = 512

// BlockMap is a BlockDevice backed by a sparse map of fixed-size blocks.
// Unwritten blocks read as zero. It is useful for exercising large,
// sparsely-populated volumes (e.g. a multi-gigabyte FAT32 image) without
// allocating the whole backing store.
type BlockMap struct {
	data map[int64][blkmapsize]byte
}

// NewBlockMap returns a BlockMap ready for use.
func NewBlockMap() *BlockMap {
	return &BlockMap{data: make(map[int64][blkmapsize]byte)}
}

func (b *BlockMap) BlockSize() int { return blkmapsize }

func (b *BlockMap) Size() int64 {
	const kilobyte = 1000
	const megabyte = 1000 * kilobyte
	const gigabyte = 1000 * megabyte
	return 4 * gigabyte // 4GB does not overflow uint32, so likely safe for use with FAT32?
}

func (b *BlockMap) ReadBlocks(dst []byte, startBlock int64) (int, error) {
	if startBlock < 0 {
		return 0, errors.New("invalid startBlock")
	}

	lastbidx := len(dst) / blkmapsize
	if len(dst)%blkmapsize != 0 {
		return 0, errors.New("dst size not multiple of block size")
	}
	for bidx := int64(0); bidx < int64(lastbidx); bidx++ {
		block := b.data[startBlock+bidx]
		copy(dst[:blkmapsize], block[:])
		dst = dst[blkmapsize:]
	}
	return lastbidx * blkmapsize, nil
}

func (b *BlockMap) WriteBlocks(data []byte, startBlock int64) (int, error) {
	if startBlock < 0 {
		return 0, errors.New("invalid startBlock")
	}

	lastbidx := len(data) / blkmapsize
	if len(data)%blkmapsize != 0 {
		return 0, errors.New("data size not multiple of block size")
	}
	var auxblk [blkmapsize]byte
	for bidx := int64(0); bidx < int64(lastbidx); bidx++ {
		copy(auxblk[:], data[:blkmapsize])
		b.data[startBlock+bidx] = auxblk
		data = data[blkmapsize:]
	}
	return lastbidx * blkmapsize, nil
}

func (b *BlockMap) EraseBlocks(startBlock, numBlocks int64) error {
	if startBlock < 0 || numBlocks <= 0 {
		return errors.New("invalid erase parameters")
	}
	end := startBlock + numBlocks
	if end < startBlock {
		return errors.New("overflow")
	}
	if len(b.data) > 1024 {
		// Optimized for maps with many entries.
		for i := startBlock; i < end; i++ {
			delete(b.data, i)
		}
	} else {
		// Optimized for maps with few entries.
		for blkidx := range b.data {
			if blkidx >= startBlock && blkidx < end {
				delete(b.data, blkidx)
			}
		}
	}
	return nil
}

// BlockByteSlice is a BlockDevice backed by one contiguous, eagerly
// allocated byte slice. Simpler and faster than BlockMap for volumes
// small enough to fit in memory whole (test fixtures, small embedded
// volumes).
type BlockByteSlice struct {
	blk blkIdxer
	buf []byte
}

// NewBlockByteSlice allocates a BlockByteSlice of the given block size
// holding numBlocks blocks, all zeroed.
func NewBlockByteSlice(blockSize, numBlocks int) (*BlockByteSlice, error) {
	blk, err := makeBlockIndexer(blockSize)
	if err != nil {
		return nil, err
	}
	return &BlockByteSlice{
		blk: blk,
		buf: make([]byte, blockSize*numBlocks),
	}, nil
}

func (b *BlockByteSlice) BlockSize() int { return int(b.blk.size()) }

func (b *BlockByteSlice) ReadBlocks(dst []byte, startBlock int64) (int, error) {
	if b.blk.off(int64(len(dst))) != 0 {
		return 0, errors.New("dst size not multiple of block size")
	} else if startBlock < 0 {
		return 0, errors.New("invalid startBlock")
	}
	off := startBlock * b.blk.size()
	end := off + int64(len(dst))
	if end > int64(len(b.buf)) {
		return 0, fmt.Errorf("read past end of buffer: %d > %d", end, len(b.buf))
	}

	return copy(dst, b.buf[off:end]), nil
}

func (b *BlockByteSlice) WriteBlocks(data []byte, startBlock int64) (int, error) {
	if b.blk.off(int64(len(data))) != 0 {
		return 0, errors.New("data size not multiple of block size")
	} else if startBlock < 0 {
		return 0, errors.New("invalid startBlock")
	}
	off := startBlock * b.blk.size()
	end := off + int64(len(data))
	if end > int64(len(b.buf)) {
		return 0, fmt.Errorf("write past end of buffer: %d > %d", end, len(b.buf))
	}

	return copy(b.buf[off:end], data), nil
}

func (b *BlockByteSlice) EraseBlocks(startBlock, numBlocks int64) error {
	if startBlock < 0 || numBlocks <= 0 {
		return errors.New("invalid erase parameters")
	}
	start := startBlock * b.blk.size()
	end := start + numBlocks*b.blk.size()
	if end > int64(len(b.buf)) {
		return errors.New("erase past end of buffer")
	}
	clear(b.buf[start:end])
	return nil
}

func (b *BlockByteSlice) Size() int64 {
	return int64(len(b.buf))
}
