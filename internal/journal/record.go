package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/NanzeRT/queues-demo/pkg/id"
)

// Op identifies the state transition a record describes.
type Op byte

const (
	OpTaskAdded Op = iota + 1
	OpTaskLeased
	OpTaskCompleted
	OpTaskRequeued

	opSnapshot Op = 0x7F
)

// String returns the op name.
func (o Op) String() string {
	switch o {
	case OpTaskAdded:
		return "task_added"
	case OpTaskLeased:
		return "task_leased"
	case OpTaskCompleted:
		return "task_completed"
	case OpTaskRequeued:
		return "task_requeued"
	case opSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// Record is one journal entry.
type Record struct {
	Op   Op
	AtMs int64
	Task id.ID
	// SubmissionID is set for OpTaskAdded.
	SubmissionID string
	// Delivery and DeadlineMs are set for OpTaskLeased. Delivery is the
	// lease-scoped handle handed to the worker; replay restores it so a
	// pre-restart handle still resolves to its lease.
	Delivery   id.ID
	DeadlineMs int64
}

// recordBody is the JSON payload of a record.
type recordBody struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id,omitempty"`
	DeliveryID   string `json:"delivery_id,omitempty"`
	DeadlineMs   int64  `json:"deadline_ms,omitempty"`
}

// Frame encoding: varint headerLen | header | payload | crc32c(header|payload).
// Header: [1B op][8B ms_be].

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func encodeFrame(header, payload []byte) []byte {
	out := make([]byte, 0, 10+len(header)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

func decodeFrame(b []byte) (header, payload []byte, ok bool) {
	if len(b) < 1+4 {
		return nil, nil, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, nil, false
	}
	if n+int(hlen)+4 > len(b) {
		return nil, nil, false
	}
	header = b[n : n+int(hlen)]
	payload = b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return nil, nil, false
	}
	return header, payload, true
}

// EncodeRecord serializes a record into its framed on-disk form.
func EncodeRecord(rec Record) []byte {
	var header [9]byte
	header[0] = byte(rec.Op)
	binary.BigEndian.PutUint64(header[1:], uint64(rec.AtMs))

	body := recordBody{ID: rec.Task.String()}
	if rec.Op == OpTaskAdded {
		body.SubmissionID = rec.SubmissionID
	}
	if rec.Op == OpTaskLeased {
		if !rec.Delivery.IsZero() {
			body.DeliveryID = rec.Delivery.String()
		}
		body.DeadlineMs = rec.DeadlineMs
	}
	payload, _ := json.Marshal(body)
	return encodeFrame(header[:], payload)
}

// DecodeRecord parses a framed record. It returns false when the frame is
// truncated, corrupted, or structurally invalid; callers treat such a record
// as a torn trailing write.
func DecodeRecord(b []byte) (Record, bool) {
	header, payload, ok := decodeFrame(b)
	if !ok || len(header) != 9 {
		return Record{}, false
	}
	rec := Record{
		Op:   Op(header[0]),
		AtMs: int64(binary.BigEndian.Uint64(header[1:])),
	}
	switch rec.Op {
	case OpTaskAdded, OpTaskLeased, OpTaskCompleted, OpTaskRequeued:
	default:
		return Record{}, false
	}

	var body recordBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return Record{}, false
	}
	taskID, err := id.Parse(body.ID)
	if err != nil {
		return Record{}, false
	}
	rec.Task = taskID
	rec.SubmissionID = body.SubmissionID
	rec.DeadlineMs = body.DeadlineMs
	if body.DeliveryID != "" {
		deliveryID, err := id.Parse(body.DeliveryID)
		if err != nil {
			return Record{}, false
		}
		rec.Delivery = deliveryID
	}
	return rec, true
}

// ErrCorruptSnapshot is returned when the snapshot record fails verification.
var ErrCorruptSnapshot = fmt.Errorf("journal: corrupt snapshot")
