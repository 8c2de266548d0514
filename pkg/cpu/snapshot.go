package cpu

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// snapshotPairs lists the 16-bit register pairs in persisted-state order,
// after PC.
var snapshotPairs = [13]Register16{BC, DE, HL, AF, IX, IY, SP, WZ, BC_, DE_, HL_, AF_, WZ_}

// SaveSnapshot writes the CPU and memory state to path as a fixed-width
// binary layout: PC(2) + 13 pairs (2 bytes each) + I(1)+R(1)+IM(1)+
// IFF1(1)+IFF2(1)+halt(1) + 64 KiB memory = 34 + 65536 bytes. A plain
// binary.Write layout rather than a self-describing encoding, since the
// byte order is fixed and there's no versioning to carry.
func (c *CPU) SaveSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()
	return c.WriteSnapshot(f)
}

// WriteSnapshot writes the snapshot layout to an arbitrary io.Writer.
func (c *CPU) WriteSnapshot(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, c.Reg.PC()); err != nil {
		return err
	}
	for _, rp := range snapshotPairs {
		if err := binary.Write(w, binary.BigEndian, c.Reg.Get16(rp)); err != nil {
			return err
		}
	}
	meta := []uint8{c.Reg.I, c.Reg.R, c.Reg.IM, boolByte(c.IFF1), boolByte(c.IFF2), boolByte(c.Halt)}
	if _, err := w.Write(meta); err != nil {
		return err
	}
	_, err := w.Write(c.Mem.Raw()[:])
	return err
}

// LoadSnapshot reads a snapshot file written by SaveSnapshot, restoring
// it into the receiver.
func (c *CPU) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return c.ReadSnapshot(f)
}

// ReadSnapshot reads the snapshot layout from an arbitrary io.Reader.
func (c *CPU) ReadSnapshot(r io.Reader) error {
	var pc uint16
	if err := binary.Read(r, binary.BigEndian, &pc); err != nil {
		return err
	}
	c.Reg.SetPC(pc)

	for _, rp := range snapshotPairs {
		var v uint16
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return err
		}
		c.Reg.Set16(rp, v)
	}

	meta := make([]uint8, 6)
	if _, err := io.ReadFull(r, meta); err != nil {
		return err
	}
	c.Reg.I, c.Reg.R, c.Reg.IM = meta[0], meta[1], meta[2]
	c.IFF1, c.IFF2, c.Halt = meta[3] != 0, meta[4] != 0, meta[5] != 0

	_, err := io.ReadFull(r, c.Mem.Raw()[:])
	return err
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
