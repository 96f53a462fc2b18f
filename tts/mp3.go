package tts

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

// Bitrate tables for Layer III, kbps, indexed by the frame header's bitrate
// field. Index 0 ("free") and 15 (reserved) are unusable.
var (
	bitrateV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	bitrateV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
)

// measureMP3 estimates the playback duration of an MP3 file from its size and
// the bitrate of its first audio frame. The synth engine emits constant
// bitrate audio, so size/bitrate is accurate enough for a playback window.
func measureMP3(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open mp3: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat mp3: %w", err)
	}
	size := st.Size()
	if size == 0 {
		return 0, fmt.Errorf("empty mp3")
	}

	head := make([]byte, 16*1024)
	n, _ := f.Read(head)
	head = head[:n]

	offset := 0
	// Skip an ID3v2 tag if present; its size is a 28-bit synchsafe int.
	if len(head) >= 10 && head[0] == 'I' && head[1] == 'D' && head[2] == '3' {
		tagSize := int(head[6]&0x7f)<<21 | int(head[7]&0x7f)<<14 | int(head[8]&0x7f)<<7 | int(head[9]&0x7f)
		offset = 10 + tagSize
		size -= int64(offset)
	}

	bitrateKbps := 0
	for i := offset; i+4 <= len(head); i++ {
		hdr := binary.BigEndian.Uint32(head[i : i+4])
		if hdr>>21 != 0x7ff { // 11-bit frame sync
			continue
		}
		version := (hdr >> 19) & 0x3 // 3=MPEG1, 2=MPEG2, 0=MPEG2.5
		layer := (hdr >> 17) & 0x3   // 1=Layer III
		idx := (hdr >> 12) & 0xf
		if version == 1 || layer != 1 || idx == 0 || idx == 15 {
			continue
		}
		if version == 3 {
			bitrateKbps = bitrateV1[idx]
		} else {
			bitrateKbps = bitrateV2[idx]
		}
		break
	}
	if bitrateKbps == 0 {
		return 0, fmt.Errorf("no valid mp3 frame header found")
	}
	return time.Duration(float64(size*8) / float64(bitrateKbps*1000) * float64(time.Second)), nil
}
