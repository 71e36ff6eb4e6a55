package recording

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDecodeWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	blob := WAV(EncodeS16LE(samples), 16000, 1)

	got, err := DecodeWAV(blob, 16000)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if !reflect.DeepEqual(got, samples) {
		t.Errorf("samples = %v, want %v", got, samples)
	}
}

func TestDecodeWAVStereoDownsampled(t *testing.T) {
	// 4 stereo frames at 32kHz become 2 mono samples at 16kHz
	stereo := []int16{100, 300, 100, 300, 500, 700, 500, 700}
	blob := WAV(EncodeS16LE(stereo), 32000, 2)

	got, err := DecodeWAV(blob, 16000)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if !reflect.DeepEqual(got, []int16{200, 600}) {
		t.Errorf("samples = %v", got)
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	valid := WAV(EncodeS16LE([]int16{1, 2}), 16000, 1)

	eightBit := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(eightBit[34:36], 8)

	float := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(float[20:22], 3)

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("RIFF")},
		{"not riff", append([]byte("RIFX"), valid[4:]...)},
		{"8 bit", eightBit},
		{"float format", float},
		{"no data chunk", valid[:36]},
		{"empty data", WAV(nil, 16000, 1)},
		{"truncated chunk", valid[:len(valid)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWAV(tt.data, 16000); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestReadWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meeting.wav")
	if err := os.WriteFile(path, WAV(EncodeS16LE([]int16{5, 6, 7}), 16000, 1), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ReadWAVFile(path, 16000)
	if err != nil {
		t.Fatalf("ReadWAVFile() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d samples", len(got))
	}

	if _, err := ReadWAVFile(filepath.Join(t.TempDir(), "missing.wav"), 16000); err == nil {
		t.Error("a missing file should fail")
	}
}

func TestResample(t *testing.T) {
	in := []int16{0, 100, 200, 300}
	if got := Resample(in, 16000, 16000); !reflect.DeepEqual(got, in) {
		t.Errorf("same rate = %v", got)
	}
	if got := Resample(in, 8000, 16000); len(got) != 8 || got[1] != 50 || got[7] != 300 {
		t.Errorf("upsampled = %v", got)
	}
}

func TestFrames(t *testing.T) {
	samples := make([]int16, 10)
	frames := Frames(samples, 4)
	if len(frames) != 3 {
		t.Fatalf("got %d frames", len(frames))
	}
	if len(frames[0].Samples) != 4 || len(frames[2].Samples) != 2 {
		t.Errorf("frame sizes = %d, %d", len(frames[0].Samples), len(frames[2].Samples))
	}
	if Frames(samples, 0) != nil {
		t.Error("a zero frame size yields no frames")
	}
}
