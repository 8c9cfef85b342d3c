package capture

import "fmt"

const (
	tpacketAlignment = 16
	tpacketHdrLen    = 52 // TPACKET3_HDRLEN, rounded up
	targetBlockBytes = 1 << 20
)

// computeRingSize derives an AF_PACKET ring layout from the snap length and
// the ring budget. The kernel requires:
//   - frameSize to be a multiple of TPACKET_ALIGNMENT
//   - blockSize to be a multiple of pageSize and of frameSize
//
// frameSize is rounded up to a whole page, which satisfies both.
func computeRingSize(ringBufferSizeMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	if ringBufferSizeMB <= 0 {
		return 0, 0, 0, fmt.Errorf("ringBufferSizeMB must be positive, got %d", ringBufferSizeMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snapLen must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("pageSize must be positive and multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frameSize = ((snapLen + tpacketHdrLen + pageSize - 1) / pageSize) * pageSize

	framesPerBlock := targetBlockBytes / frameSize
	if framesPerBlock < 1 {
		framesPerBlock = 1
	}
	blockSize = framesPerBlock * frameSize

	numBlocks = ringBufferSizeMB * 1024 * 1024 / blockSize
	if numBlocks < 1 {
		return 0, 0, 0, fmt.Errorf("buffer size %dMB too small for block size %d", ringBufferSizeMB, blockSize)
	}
	return frameSize, blockSize, numBlocks, nil
}
