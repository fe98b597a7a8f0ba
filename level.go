package zstdstream

import (
	"fmt"

	"github.com/dev-tony-hu/zstdstream/internal/zstdc"
)

// Quality is the four-value compression-quality enum higher layers are
// expected to expose instead of a raw integer level, mirroring the
// teacher's EncoderLevel-style quality knob. QualityNone and
// QualityFastest both map to the codec's minimum level.
type Quality int

const (
	QualityDefault Quality = iota
	QualityNone
	QualityFastest
	QualityBest
)

// Level maps a Quality to a concrete native compression level. Values
// outside the closed Quality set fail with KindInvalidArgument.
func Level(q Quality) (int, error) {
	switch q {
	case QualityNone, QualityFastest:
		return zstdc.MinCompressionLevel(), nil
	case QualityDefault:
		const preferredDefault = 5
		min, max := zstdc.MinCompressionLevel(), zstdc.MaxCompressionLevel()
		switch {
		case preferredDefault < min:
			return min, nil
		case preferredDefault > max:
			return max, nil
		default:
			return preferredDefault, nil
		}
	case QualityBest:
		return zstdc.MaxCompressionLevel(), nil
	default:
		return 0, newErr("Level", KindInvalidArgument, fmt.Errorf("unknown quality %d", int(q)))
	}
}
