package audio

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

// Format is a supported container/codec.
type Format string

const (
	FormatUnknown Format = ""
	FormatMP3     Format = "mp3"
	FormatWAV     Format = "wav"
	FormatFLAC    Format = "flac"
	FormatVorbis  Format = "vorbis"
)

// ErrUnsupportedFormat is returned for audio the engine cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// DetectFormat identifies the audio format of data.
// Tagged files are recognised by dhowden/tag; untagged MP3 frames and
// RIFF/WAVE headers are sniffed directly.
func DetectFormat(data []byte) Format {
	if _, ft, err := tag.Identify(bytes.NewReader(data)); err == nil {
		switch ft {
		case tag.MP3:
			return FormatMP3
		case tag.FLAC:
			return FormatFLAC
		case tag.OGG:
			return FormatVorbis
		}
	}

	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return FormatFLAC
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return FormatVorbis
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return FormatUnknown
}

// Metadata is the embedded tag information of a file, if any.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// ReadMetadata reads embedded tags. Files without tags return empty metadata.
func ReadMetadata(data []byte) Metadata {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return Metadata{}
	}
	return Metadata{Title: m.Title(), Artist: m.Artist(), Album: m.Album()}
}

// readSeekCloser keeps the Seeker visible to decoders that require a ReadCloser.
type readSeekCloser struct {
	*bytes.Reader
}

func (readSeekCloser) Close() error { return nil }

// decode decodes data with the decoder for f.
func decode(f Format, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := readSeekCloser{bytes.NewReader(data)}

	var (
		s   beep.StreamSeekCloser
		bf  beep.Format
		err error
	)
	switch f {
	case FormatMP3:
		s, bf, err = mp3.Decode(r)
	case FormatWAV:
		s, bf, err = wav.Decode(r)
	case FormatFLAC:
		s, bf, err = flac.Decode(r)
	case FormatVorbis:
		s, bf, err = vorbis.Decode(r)
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, beep.Format{}, errors.Wrapf(err, "failed to decode %s", f)
	}
	return s, bf, nil
}
