package bpdb

import (
	"bytes"
	"fmt"
	"runtime"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
)

// compressionLevel is gzip's maximum; solve time dwarfs compression time
// and the files are read far more often than written.
const compressionLevel = gzip.BestCompression

// blockDeflateResult is the output of deflateBlocks: the concatenation of
// one complete gzip member per input block, and a lookup table with the byte
// offset of each member within out. lookup[0] is always 0 and has one entry
// per block; a reader seeks to lookup[i] and inflates from there without
// touching the preceding blocks.
type blockDeflateResult struct {
	out    []byte
	lookup []int64
}

// deflateBlocks splits in into blockSize-byte blocks (the final block may be
// short) and compresses each independently and in parallel.
func deflateBlocks(in []byte, blockSize int64) (*blockDeflateResult, error) {
	if len(in) == 0 {
		return &blockDeflateResult{}, nil
	}

	numBlocks := (int64(len(in)) + blockSize - 1) / blockSize
	compressed := make([][]byte, numBlocks)

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for b := int64(0); b < numBlocks; b++ {
		b := b
		g.Go(func() error {
			begin := b * blockSize
			end := begin + blockSize
			if end > int64(len(in)) {
				end = int64(len(in))
			}

			var buf bytes.Buffer
			w, err := gzip.NewWriterLevel(&buf, compressionLevel)
			if err != nil {
				return err
			}
			if _, err := w.Write(in[begin:end]); err != nil {
				return fmt.Errorf("deflate block %d: %w", b, err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("deflate block %d: %w", b, err)
			}
			compressed[b] = buf.Bytes()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &blockDeflateResult{lookup: make([]int64, numBlocks)}
	var total int64
	for b, blk := range compressed {
		res.lookup[b] = total
		total += int64(len(blk))
	}
	res.out = make([]byte, 0, total)
	for _, blk := range compressed {
		res.out = append(res.out, blk...)
	}
	return res, nil
}
