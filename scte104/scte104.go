// Package scte104 decodes the subset of ANSI/SCTE 104 multiple_operation
// messages this encoder core acts on, giving the VANC collaborator
// boundary named in spec.md §4.5 a concrete, testable shape instead of an
// untyped callback.
//
// The SDI vendor SDK and its VANC parser are out of scope (spec.md §1);
// this package only decodes the already-extracted SCTE-104 payload bytes
// a VANC callback would hand over.
package scte104

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Message opID values. 1 identifies a single_operation_message, which
// spec.md §4.5 says is silently discarded; 0xFFFF identifies a
// multiple_operation_message, the only kind this encoder acts on.
const (
	opIDSingleOperation   = 0x0001
	opIDMultipleOperation = 0xFFFF
)

// Operation opID values within a multiple_operation_message.
const (
	opSpliceNullRequestData = 0x0000
	opSpliceRequestData     = 0x0101
)

// splice_insert_type values carried in splice_request_data, per SCTE-104
// table 8.4.
const (
	InsertStartNormal    = 0x00 // begin ad break at the next available splice point
	InsertStartImmediate = 0x01 // begin ad break immediately
	InsertEndNormal      = 0x02 // return to network at the next available splice point
	InsertEndImmediate   = 0x03 // return to network immediately
	InsertCancel         = 0x04
)

// ErrNotMultipleOperation is returned by Decode for a single_operation or
// unrecognized message; spec.md §4.5 treats it as a discard, not an
// error, so callers should check this with errors.Is rather than log it
// as a failure.
var ErrNotMultipleOperation = errors.New("scte104: not a multiple_operation_message")

// SpliceRequest is the decoded body of a splice_request_data operation:
// the fields the SCTE-35 generator needs to act on it.
type SpliceRequest struct {
	InsertType      byte
	EventID         uint32
	UniqueProgramID uint16
	PreRollTimeMS   uint16
}

// NullRequest marks a splice_null_request_data operation: a request to
// emit a heartbeat splice_null section, not an ad event.
type NullRequest struct{}

// Message is a decoded multiple_operation_message: its header fields and
// the operations it carries, in order.
type Message struct {
	MessageNumber byte
	DPIPIDIndex   uint16
	SpliceRequests []SpliceRequest
	NullRequests   int
}

// Decode parses a multiple_operation_message from a VANC-delivered
// SCTE-104 payload. A single_operation_message (opID 1) or any other
// unrecognized top-level opID returns ErrNotMultipleOperation, per
// spec.md §4.5's "Type-1 messages are silently discarded."
func Decode(b []byte) (*Message, error) {
	if len(b) < 2 {
		return nil, errors.New("scte104: message too short")
	}
	opID := binary.BigEndian.Uint16(b[0:2])
	if opID != opIDMultipleOperation {
		return nil, ErrNotMultipleOperation
	}
	if len(b) < 14 {
		return nil, errors.New("scte104: multiple_operation_message too short")
	}

	// b[2:4] message_size, b[4:6] result, b[6:8] result_extension,
	// b[8] protocol_version, b[9] AS_index, b[10] message_number,
	// b[11:13] DPI_PID_index, b[13] SCTE35_protocol_version.
	msg := &Message{
		MessageNumber: b[10],
		DPIPIDIndex:   binary.BigEndian.Uint16(b[11:13]),
	}

	off := 14
	if off >= len(b) {
		return nil, errors.New("scte104: missing timestamp field")
	}
	timeType := b[off]
	off++
	switch timeType {
	case 0: // no timestamp
	case 1: // UTC: seconds(4) + microseconds(2)
		off += 6
	default:
		return nil, errors.Errorf("scte104: unsupported time_type %d", timeType)
	}

	if off >= len(b) {
		return nil, errors.New("scte104: missing num_ops field")
	}
	numOps := int(b[off])
	off++

	for i := 0; i < numOps; i++ {
		if off+4 > len(b) {
			return nil, errors.Errorf("scte104: truncated operation %d", i)
		}
		opType := binary.BigEndian.Uint16(b[off : off+2])
		dataLen := int(binary.BigEndian.Uint16(b[off+2 : off+4]))
		off += 4
		if off+dataLen > len(b) {
			return nil, errors.Errorf("scte104: operation %d data overruns message", i)
		}
		data := b[off : off+dataLen]
		off += dataLen

		switch opType {
		case opSpliceNullRequestData:
			msg.NullRequests++
		case opSpliceRequestData:
			req, err := decodeSpliceRequest(data)
			if err != nil {
				return nil, errors.Wrapf(err, "scte104: operation %d", i)
			}
			msg.SpliceRequests = append(msg.SpliceRequests, req)
		default:
			// Unsupported operation types are ignored; this is a minimal
			// decoder covering only the two operations the generator in
			// scope can act on.
		}
	}
	return msg, nil
}

func decodeSpliceRequest(b []byte) (SpliceRequest, error) {
	// splice_insert_type(1) + splice_event_id(4) + unique_program_id(2) +
	// pre_roll_time(2) + brk_duration(2) + avail_num(1) +
	// avails_expected(1) + auto_return_flag(1).
	if len(b) < 14 {
		return SpliceRequest{}, errors.New("splice_request_data too short")
	}
	return SpliceRequest{
		InsertType:      b[0],
		EventID:         binary.BigEndian.Uint32(b[1:5]),
		UniqueProgramID: binary.BigEndian.Uint16(b[5:7]),
		PreRollTimeMS:   binary.BigEndian.Uint16(b[7:9]),
	}, nil
}
