package bufr

import (
	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tree"
)

func uint24(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

func putUint24(b []byte, v int) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func uint16be(b []byte) int {
	return int(b[0])<<8 | int(b[1])
}

func putUint16be(b []byte, v int) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

// parseSection0 reads the 8-byte fixed section 0: magic, total length,
// edition (§6.1).
func parseSection0(buf []byte) (totalLen, edition int, err error) {
	if len(buf) < 8 {
		return 0, 0, &DecodeError{Kind: KindMalformedHeader, Cause: Error("buffer shorter than section 0")}
	}
	if string(buf[0:4]) != "BUFR" {
		return 0, 0, &DecodeError{Kind: KindValidationFailed, Cause: Error("missing BUFR start signature")}
	}
	return uint24(buf[4:7]), int(buf[7]), nil
}

// parseSection1 reads the identification section for edition 3/4,
// returning its byte length and populating msg's section-1 fields.
func parseSection1(buf []byte, edition int, msg *tree.Message) (length int, err error) {
	if len(buf) < 3 {
		return 0, &DecodeError{Kind: KindMalformedHeader, Cause: Error("buffer shorter than section 1 length field")}
	}
	length = uint24(buf[0:3])
	if len(buf) < length {
		return 0, &DecodeError{Kind: KindMalformedHeader, Cause: Error("section 1 truncated")}
	}
	msg.Edition = edition
	msg.MasterTable = int(buf[3])
	switch edition {
	case 4:
		msg.OriginatingCentre = uint16be(buf[4:6])
		msg.OriginatingSubCentre = uint16be(buf[6:8])
		msg.UpdateSequence = int(buf[8])
		msg.OptionalSection = buf[9]&0x80 != 0
		msg.DataCategory = int(buf[10])
		msg.DataSubCategory = int(buf[11])
		msg.LocalSubCategory = int(buf[12])
		msg.MasterTableVersion = int(buf[13])
		msg.LocalTableVersion = int(buf[14])
		msg.Year = uint16be(buf[15:17])
		msg.Month, msg.Day, msg.Hour, msg.Minute, msg.Second = int(buf[17]), int(buf[18]), int(buf[19]), int(buf[20]), int(buf[21])
	default:
		msg.OriginatingSubCentre = int(buf[4])
		msg.OriginatingCentre = int(buf[5])
		msg.UpdateSequence = int(buf[6])
		msg.OptionalSection = buf[7]&0x80 != 0
		msg.DataCategory = int(buf[8])
		msg.LocalSubCategory = int(buf[9])
		msg.MasterTableVersion = int(buf[10])
		msg.LocalTableVersion = int(buf[11])
		msg.Year = int(buf[12])
		msg.Month, msg.Day, msg.Hour, msg.Minute, msg.Second = int(buf[13]), int(buf[14]), int(buf[15]), 0, 0
	}
	return length, nil
}

// parseSection3 reads section 3's subset count, flags, and unexpanded
// descriptor list (§6.1).
func parseSection3(buf []byte, msg *tree.Message) (length int, err error) {
	if len(buf) < 7 {
		return 0, &DecodeError{Kind: KindMalformedHeader, Cause: Error("buffer shorter than section 3 header")}
	}
	length = uint24(buf[0:3])
	if len(buf) < length {
		return 0, &DecodeError{Kind: KindMalformedHeader, Cause: Error("section 3 truncated")}
	}
	msg.NSubsets = uint16be(buf[4:6])
	flags := buf[6]
	msg.Observed = flags&0x80 != 0
	msg.Compressed = flags&0x40 != 0
	descBytes := buf[7:length]
	// Section 3 is padded to an even length (see writeSection3), which
	// leaves one trailing pad byte after the two-byte descriptors.
	descBytes = descBytes[:len(descBytes)/2*2]
	msg.Descriptors = make([]descriptor.ID, len(descBytes)/2)
	for i := range msg.Descriptors {
		v := uint16be(descBytes[2*i : 2*i+2])
		msg.Descriptors[i] = descriptor.FromUint16(uint16(v))
	}
	return length, nil
}

// writeSection0 appends the fixed 8-byte section 0, with totalLen
// patched in afterward by the caller once it is known.
func writeSection0(out []byte, edition int) []byte {
	out = append(out, "BUFR"...)
	out = append(out, 0, 0, 0, byte(edition))
	return out
}

func writeSection1(out []byte, msg *tree.Message) []byte {
	start := len(out)
	out = append(out, 0, 0, 0) // length placeholder
	out = append(out, byte(msg.MasterTable))
	switch msg.Edition {
	case 4:
		var b [18]byte
		putUint16be(b[0:2], msg.OriginatingCentre)
		putUint16be(b[2:4], msg.OriginatingSubCentre)
		b[4] = byte(msg.UpdateSequence)
		if msg.OptionalSection {
			b[5] = 0x80
		}
		b[6] = byte(msg.DataCategory)
		b[7] = byte(msg.DataSubCategory)
		b[8] = byte(msg.LocalSubCategory)
		b[9] = byte(msg.MasterTableVersion)
		b[10] = byte(msg.LocalTableVersion)
		putUint16be(b[11:13], msg.Year)
		b[13], b[14], b[15], b[16] = byte(msg.Month), byte(msg.Day), byte(msg.Hour), byte(msg.Minute)
		b[17] = byte(msg.Second)
		out = append(out, b[:]...)
	default:
		var b [12]byte
		b[0] = byte(msg.OriginatingSubCentre)
		b[1] = byte(msg.OriginatingCentre)
		b[2] = byte(msg.UpdateSequence)
		if msg.OptionalSection {
			b[3] = 0x80
		}
		b[4] = byte(msg.DataCategory)
		b[5] = byte(msg.LocalSubCategory)
		b[6] = byte(msg.MasterTableVersion)
		b[7] = byte(msg.LocalTableVersion)
		b[8] = byte(msg.Year)
		b[9], b[10], b[11] = byte(msg.Month), byte(msg.Day), byte(msg.Hour)
		out = append(out, b[:]...)
	}
	putUint24(out[start:start+3], len(out)-start)
	return out
}

func writeSection3(out []byte, msg *tree.Message) []byte {
	start := len(out)
	out = append(out, 0, 0, 0) // length placeholder
	out = append(out, 0)       // reserved
	var nb [2]byte
	putUint16be(nb[:], msg.NSubsets)
	out = append(out, nb[:]...)
	var flags byte
	if msg.Observed {
		flags |= 0x80
	}
	if msg.Compressed {
		flags |= 0x40
	}
	out = append(out, flags)
	for _, d := range msg.Descriptors {
		var db [2]byte
		putUint16be(db[:], int(d.Uint16()))
		out = append(out, db[:]...)
	}
	if (len(out)-start)%2 != 0 {
		out = append(out, 0) // padding byte to keep the section even-lengthed
	}
	putUint24(out[start:start+3], len(out)-start)
	return out
}
