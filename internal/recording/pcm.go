package recording

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
)

// DecodeS16LE turns little-endian 16-bit PCM bytes into samples. A trailing odd byte is ignored.
func DecodeS16LE(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return samples
}

func EncodeS16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// EncodeFrameBase64 is the wire form of a frame: 16-bit little-endian PCM, base64.
func EncodeFrameBase64(frame AudioFrame) string {
	return base64.StdEncoding.EncodeToString(EncodeS16LE(frame.Samples))
}

// FloatToPCM16 converts [-1, 1] float samples, clamping out-of-range values.
func FloatToPCM16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, f := range in {
		v := f * 32768
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

// WAV wraps raw 16-bit PCM in a RIFF header.
func WAV(pcm []byte, sampleRate, channels int) []byte {
	var buf bytes.Buffer

	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	dataSize := len(pcm)
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))            // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))             // PCM format
	binary.Write(&buf, binary.LittleEndian, uint16(channels))      // number of channels
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))    // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))      // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))    // block align
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample)) // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)

	return buf.Bytes()
}
