package recording

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// ReadWAVFile loads a 16-bit PCM WAV file as mono samples at sampleRate.
func ReadWAVFile(path string, sampleRate int) ([]int16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeWAV(data, sampleRate)
}

// DecodeWAV parses a 16-bit PCM WAV blob, downmixes it to mono and resamples
// it to sampleRate.
func DecodeWAV(data []byte, sampleRate int) ([]int16, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("invalid wav: too short")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("invalid wav: missing riff/wave header")
	}

	var (
		fmtFound, dataFound bool
		channels, rate      int
		bitsPerSample       int
		pcm                 []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if offset+chunkSize > len(data) {
			return nil, fmt.Errorf("invalid wav: chunk overflows file")
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("invalid wav: fmt chunk too short")
			}
			if format := binary.LittleEndian.Uint16(data[offset : offset+2]); format != 1 {
				return nil, fmt.Errorf("unsupported wav format: %d", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[offset+2 : offset+4]))
			rate = int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[offset+14 : offset+16]))
			fmtFound = true
		case "data":
			pcm = data[offset : offset+chunkSize]
			dataFound = true
		}

		offset += chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !fmtFound || !dataFound {
		return nil, fmt.Errorf("invalid wav: missing fmt or data chunk")
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported wav bits per sample: %d", bitsPerSample)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("invalid wav sample rate: %d", rate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid wav: channels=%d", channels)
	}

	samples := Resample(Downmix(DecodeS16LE(pcm), channels), rate, sampleRate)
	if len(samples) == 0 {
		return nil, fmt.Errorf("invalid wav: empty audio data")
	}
	return samples, nil
}

// Downmix averages interleaved channels into one. A trailing partial frame is dropped.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	out := make([]int16, len(samples)/channels)
	for i := range out {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(samples[i*channels+c])
		}
		out[i] = int16(sum / int32(channels))
	}
	return out
}

// Resample converts between rates by linear interpolation.
func Resample(samples []int16, inRate, outRate int) []int16 {
	if inRate <= 0 || outRate <= 0 || inRate == outRate || len(samples) == 0 {
		return samples
	}

	n := int(math.Round(float64(len(samples)) * float64(outRate) / float64(inRate)))
	out := make([]int16, n)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * float64(inRate) / float64(outRate)
		idx := int(pos)
		frac := pos - float64(idx)

		a := samples[min(idx, last)]
		b := samples[min(idx+1, last)]
		out[i] = int16(float64(a)*(1-frac) + float64(b)*frac)
	}
	return out
}

// Frames splits samples into frames of frameSamples. The last frame may be shorter.
func Frames(samples []int16, frameSamples int) []AudioFrame {
	if frameSamples <= 0 {
		return nil
	}
	frames := make([]AudioFrame, 0, (len(samples)+frameSamples-1)/frameSamples)
	for start := 0; start < len(samples); start += frameSamples {
		end := min(start+frameSamples, len(samples))
		frames = append(frames, AudioFrame{Samples: samples[start:end]})
	}
	return frames
}
