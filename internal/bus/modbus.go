package bus

import (
	"encoding/binary"
	"fmt"
)

// Modbus RTU, function 0x03 (read holding registers) only. The LC10e
// drives expose limit switches and position as holding registers.
const fnReadHolding = 0x03

// crc16 computes the Modbus RTU checksum (poly 0xA001, init 0xFFFF).
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// buildReadHolding frames a register read request. The CRC goes on the
// wire little-endian, everything else big-endian.
func buildReadHolding(slave uint8, addr, count uint16) []byte {
	frame := make([]byte, 8)
	frame[0] = slave
	frame[1] = fnReadHolding
	binary.BigEndian.PutUint16(frame[2:], addr)
	binary.BigEndian.PutUint16(frame[4:], count)
	binary.LittleEndian.PutUint16(frame[6:], crc16(frame[:6]))
	return frame
}

// responseLen is the expected wire length of a read-holding response.
func responseLen(count uint16) int {
	return 5 + 2*int(count)
}

// parseReadHolding validates a response frame and decodes the register
// values. Exception frames (function | 0x80) and responses from the
// wrong slave are rejected as UnexpectedResponse.
func parseReadHolding(slave uint8, count uint16, frame []byte) ([]uint16, error) {
	if len(frame) >= 5 && frame[1] == fnReadHolding|0x80 {
		return nil, errOf(UnexpectedResponse, fmt.Errorf("exception code 0x%02x from slave %d", frame[2], frame[0]))
	}
	if len(frame) != responseLen(count) {
		return nil, errOf(UnexpectedResponse, fmt.Errorf("response length %d, want %d", len(frame), responseLen(count)))
	}
	body := frame[:len(frame)-2]
	wire := binary.LittleEndian.Uint16(frame[len(frame)-2:])
	if got := crc16(body); got != wire {
		return nil, errOf(CRCMismatch, fmt.Errorf("crc 0x%04x, frame says 0x%04x", got, wire))
	}
	if frame[0] != slave {
		return nil, errOf(UnexpectedResponse, fmt.Errorf("reply from slave %d, want %d", frame[0], slave))
	}
	if frame[1] != fnReadHolding {
		return nil, errOf(UnexpectedResponse, fmt.Errorf("function 0x%02x, want 0x%02x", frame[1], fnReadHolding))
	}
	if int(frame[2]) != 2*int(count) {
		return nil, errOf(UnexpectedResponse, fmt.Errorf("byte count %d, want %d", frame[2], 2*count))
	}
	regs := make([]uint16, count)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(frame[3+2*i:])
	}
	return regs, nil
}
