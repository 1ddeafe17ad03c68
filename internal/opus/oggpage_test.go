package opus_test

import (
	"bytes"
	"encoding/binary"
)

var oggCRCTable = func() [256]uint32 {
	var table [256]uint32
	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = (r << 1) ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return table
}()

func oggCRC(data []byte) uint32 {
	var crc uint32
	for _, b := range data {
		crc = (crc << 8) ^ oggCRCTable[byte(crc>>24)^b]
	}
	return crc
}

const (
	pageBOS = 0x02
	pageEOS = 0x04
)

// oggPage builds a single Ogg page holding whole packets.
func oggPage(headerType byte, sequence uint32, packets ...[]byte) []byte {
	var segments []byte
	var payload []byte
	for _, p := range packets {
		n := len(p)
		for n >= 255 {
			segments = append(segments, 255)
			n -= 255
		}
		segments = append(segments, byte(n))
		payload = append(payload, p...)
	}

	var page bytes.Buffer
	page.WriteString("OggS")
	page.WriteByte(0)
	page.WriteByte(headerType)
	binary.Write(&page, binary.LittleEndian, uint64(sequence)*960)
	binary.Write(&page, binary.LittleEndian, uint32(0x5eed))
	binary.Write(&page, binary.LittleEndian, sequence)
	binary.Write(&page, binary.LittleEndian, uint32(0))
	page.WriteByte(byte(len(segments)))
	page.Write(segments)
	page.Write(payload)

	out := page.Bytes()
	binary.LittleEndian.PutUint32(out[22:26], oggCRC(out))
	return out
}

func opusHead() []byte {
	head := []byte("OpusHead")
	head = append(head, 1, 2)
	head = binary.LittleEndian.AppendUint16(head, 312)
	head = binary.LittleEndian.AppendUint32(head, 48000)
	head = binary.LittleEndian.AppendUint16(head, 0)
	return append(head, 0)
}

func opusTags() []byte {
	tags := []byte("OpusTags")
	tags = binary.LittleEndian.AppendUint32(tags, 4)
	tags = append(tags, "test"...)
	return binary.LittleEndian.AppendUint32(tags, 0)
}

// oggOpusStream builds a complete Ogg/Opus stream carrying frames.
func oggOpusStream(frames ...[]byte) []byte {
	var out []byte
	out = append(out, oggPage(pageBOS, 0, opusHead())...)
	out = append(out, oggPage(0, 1, opusTags())...)
	out = append(out, oggPage(pageEOS, 2, frames...)...)
	return out
}

func dcaStream(metadata string, frames ...[]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("DCA1")
	binary.Write(&buf, binary.LittleEndian, int32(len(metadata)))
	buf.WriteString(metadata)
	for _, f := range frames {
		binary.Write(&buf, binary.LittleEndian, uint16(len(f)))
		buf.Write(f)
	}
	return buf.Bytes()
}
