// Package scte35 generates SCTE-35 splice_info_section messages —
// splice_null heartbeats and immediate program-wide splice_insert
// out/in-of-network events — and packetizes them as MPEG-TS sections on
// a configured output PID, the way a SCTE-104-driven ad-insertion
// splicer signals a downstream slicer.
package scte35

import (
	"encoding/binary"

	"github.com/kernellabs/obecore/clock"
	"github.com/kernellabs/obecore/container/mts"
	"github.com/kernellabs/obecore/container/mts/psi"
)

// Splice command types carried in a splice_info_section.
const (
	spliceNull   = 0x00
	spliceInsert = 0x05
)

// tableID is the SCTE-35 table_id, fixed by the standard.
const tableID = 0xFC

// ptsAdjustOffset is the fixed offset spec.md §4.5 adds to the current
// stream time when stamping a splice section: 10 seconds at the 90kHz
// PTS rate.
const ptsAdjustOffset = 10 * clock.PTSHz

// Generator emits SCTE-35 sections for one output PID, tracking its own
// continuity counter and next event id the way scte.c's scte35_context_s
// does; the unique program id is passed in on each splice_insert call.
//
// A Generator is not safe for concurrent use; spec.md §5 runs VANC
// parsing and SCTE-35 emission on the single capture callback thread.
type Generator struct {
	outputPID uint16
	cc        byte
	eventID   uint32
}

// NewGenerator returns a Generator that packetizes sections onto pid,
// with event ids starting at 1, matching scte35_initialize.
func NewGenerator(pid uint16) *Generator {
	return &Generator{outputPID: pid, eventID: 1}
}

// SetNextEventID lets an upstream SCTE-104 event id be honored on the
// next splice_insert emission, mirroring scte35_set_next_event_id.
func (g *Generator) SetNextEventID(id uint32) { g.eventID = id }

// Heartbeat emits a zero-length splice_null section, typically used to
// keep a downstream slicer alive. streamTimeTicks is the current
// OBE_CLOCK stream time, used for the pts_adjustment field.
func (g *Generator) Heartbeat(streamTimeTicks int64) [][mts.PacketSize]byte {
	section := g.buildSection(spliceNull, nil, streamTimeTicks)
	return g.packetize(section)
}

// ImmediateOutOfNetwork emits a program-splice, splice-immediate
// splice_insert with out_of_network_indicator=true: "go into the ad
// break, switch away from the network."
func (g *Generator) ImmediateOutOfNetwork(uniqueProgramID uint16, streamTimeTicks int64) [][mts.PacketSize]byte {
	return g.immediate(true, uniqueProgramID, streamTimeTicks)
}

// ImmediateInToNetwork emits the same splice_insert with
// out_of_network_indicator=false: "return from the ad break to the
// network."
func (g *Generator) ImmediateInToNetwork(uniqueProgramID uint16, streamTimeTicks int64) [][mts.PacketSize]byte {
	return g.immediate(false, uniqueProgramID, streamTimeTicks)
}

func (g *Generator) immediate(outOfNetwork bool, uniqueProgramID uint16, streamTimeTicks int64) [][mts.PacketSize]byte {
	cmd := spliceInsertCommand(g.eventID, outOfNetwork, uniqueProgramID)
	g.eventID++
	section := g.buildSection(spliceInsert, cmd, streamTimeTicks)
	return g.packetize(section)
}

// spliceInsertCommand builds the splice_insert() command body: event id,
// cancel=false, out_of_network, program_splice=true, duration=false,
// splice_immediate=true, unique_program_id, avail_num=0,
// avails_expected=0.
func spliceInsertCommand(eventID uint32, outOfNetwork bool, uniqueProgramID uint16) []byte {
	cmd := make([]byte, 4+1+1+2+1+1)
	binary.BigEndian.PutUint32(cmd[0:4], eventID)

	// splice_event_cancel_indicator=0, reserved=1111111.
	cmd[4] = 0x7f

	// out_of_network_indicator | program_splice_indicator | duration_flag |
	// splice_immediate_indicator | reserved(4).
	flags := byte(0x0f) // reserved low nibble
	if outOfNetwork {
		flags |= 0x80
	}
	flags |= 0x40 // program_splice_indicator
	// duration_flag = 0
	flags |= 0x10 // splice_immediate_indicator
	cmd[5] = flags

	binary.BigEndian.PutUint16(cmd[6:8], uniqueProgramID)
	cmd[8] = 0x00 // avail_num
	cmd[9] = 0x00 // avails_expected
	return cmd
}

// buildSection assembles a complete splice_info_section, CRC included,
// for the given command type and body (nil for splice_null).
func (g *Generator) buildSection(cmdType byte, cmd []byte, streamTimeTicks int64) []byte {
	ptsAdjust := uint64(clock.ToPTS(streamTimeTicks)+ptsAdjustOffset) & 0x1FFFFFFFF

	section := make([]byte, 14+len(cmd)+2+4)
	section[0] = tableID
	// section[1:3] patched below once length is known.
	section[3] = 0x00 // protocol_version

	// encrypted_packet=0, encryption_algorithm=0, pts_adjustment high bit.
	section[4] = byte(ptsAdjust >> 32)
	binary.BigEndian.PutUint32(section[5:9], uint32(ptsAdjust))

	section[9] = 0x00 // cw_index
	// tier (12 bits, all 1s = no tier) | splice_command_length high nibble.
	cmdLen := uint16(len(cmd))
	section[10] = 0xff
	section[11] = 0xf0 | byte(cmdLen>>8)
	section[12] = byte(cmdLen)
	section[13] = cmdType
	copy(section[14:], cmd)

	descLoopIdx := 14 + len(cmd)
	binary.BigEndian.PutUint16(section[descLoopIdx:descLoopIdx+2], 0) // descriptor_loop_length=0

	// section_length covers everything from byte 3 (protocol_version)
	// through the trailing CRC, per SCTE 35's definition (mirrors MPEG-TS
	// PSI's section_length semantics one byte later, since table_id isn't
	// counted either).
	sectionLen := len(section) - 3
	section[1] = 0x30 | byte(sectionLen>>8) // section_syntax_indicator=0, private_indicator=0, reserved=11
	section[2] = byte(sectionLen)

	psi.UpdateCrc(section)
	return section
}

// packetize splits section across one or more 188-byte TS packets on the
// generator's output PID, prefixing a pointer_field byte before the
// first section byte and padding the final packet with 0xFF, the same
// way output_psi_section does.
func (g *Generator) packetize(section []byte) [][mts.PacketSize]byte {
	payload := make([]byte, 0, len(section)+1)
	payload = append(payload, 0x00) // pointer_field
	payload = append(payload, section...)

	const maxPayload = mts.PacketSize - 4 // no adaptation field
	var out [][mts.PacketSize]byte
	for off := 0; off < len(payload); {
		n := len(payload) - off
		if n > maxPayload {
			n = maxPayload
		}
		p := mts.Packet{
			PUSI: off == 0,
			PID:  g.outputPID,
			AFC:  mts.HasPayload,
			CC:   g.cc,
		}
		g.cc = (g.cc + 1) & 0x0f

		buf := make([]byte, n)
		copy(buf, payload[off:off+n])
		if n < maxPayload {
			pad := make([]byte, maxPayload-n)
			for i := range pad {
				pad[i] = 0xff
			}
			buf = append(buf, pad...)
		}
		p.Payload = buf

		var pkt [mts.PacketSize]byte
		copy(pkt[:], p.Bytes(nil))
		out = append(out, pkt)
		off += n
	}
	return out
}
