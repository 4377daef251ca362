package compiler

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/evilcandy-lang/evilcandy/lang/types"
)

// The byte-code file layout, all multi-byte integers big-endian:
//
//	header:  magic "EVC\0" (4B), xptr count (4B), version (2B),
//	         source file name (string)
//	per xptr:
//	         'X' (1B), file line (4B), uuid (string)
//	         'I' (1B), n_instr (4B), instructions (4B each)
//	         'R' (1B), n_rodata (4B), entries (tag 1B + payload)
//	         'L' (1B), n_label (4B), labels (2B each)
//	footer:  'F' (1B), checksum (2B)
//
//	string:  length incl. NUL (4B), bytes, NUL
//
// The checksum is the 16-bit ones'-complement of the ones'-complement sum
// of the whole file, with the checksum field itself read as zero and a
// virtual zero byte appended when the file length is odd. Rodata entries
// referencing another executable are stored as that executable's uuid;
// the reader resolves them in a second pass once every executable exists.

var headerMagic = [4]byte{'E', 'V', 'C', 0}

const (
	footerMagic byte = 'F'
	execMagic   byte = 'X'
	instrMagic  byte = 'I'
	rodataMagic byte = 'R'
	labelMagic  byte = 'L'
)

// rodata entry tags
const (
	tagEmpty byte = iota // no payload; reads back as null
	tagFloat             // 8B IEEE-754 raw bits
	tagInt               // 8B signed
	tagStrptr            // string
	tagXptr              // string: the referent's uuid
	tagBytes             // string payload of a bytes literal
)

// WriteProgram serializes the executable tree rooted at entry to w.
func WriteProgram(w io.Writer, entry *Executable) error {
	var buf bytes.Buffer
	wr := &serialWriter{buf: &buf}

	buf.Write(headerMagic[:])
	wr.u32(uint32(entry.NumFuncs()))
	wr.u16(Version)
	wr.str(entry.FileName)

	var werr error
	entry.Walk(func(ex *Executable) {
		if werr != nil {
			return
		}
		werr = wr.exec(ex)
	})
	if werr != nil {
		return werr
	}

	buf.WriteByte(footerMagic)
	csum := ocFinish(ocSum(buf.Bytes()))
	var tail [2]byte
	binary.BigEndian.PutUint16(tail[:], csum)
	buf.Write(tail[:])

	_, err := w.Write(buf.Bytes())
	return err
}

// SaveProgram writes the serialized tree to a file.
func SaveProgram(path string, entry *Executable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteProgram(f, entry); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type serialWriter struct {
	buf *bytes.Buffer
}

func (wr *serialWriter) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	wr.buf.Write(b[:])
}

func (wr *serialWriter) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	wr.buf.Write(b[:])
}

func (wr *serialWriter) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	wr.buf.Write(b[:])
}

func (wr *serialWriter) str(s string) {
	wr.u32(uint32(len(s) + 1))
	wr.buf.WriteString(s)
	wr.buf.WriteByte(0)
}

func (wr *serialWriter) exec(ex *Executable) error {
	wr.buf.WriteByte(execMagic)
	wr.u32(uint32(ex.FileLine))
	wr.str(ex.UUID)

	wr.buf.WriteByte(instrMagic)
	wr.u32(uint32(len(ex.Instr)))
	for _, ins := range ex.Instr {
		wr.u32(ins.Word())
	}

	wr.buf.WriteByte(rodataMagic)
	wr.u32(uint32(len(ex.Rodata)))
	for _, ro := range ex.Rodata {
		switch ro := ro.(type) {
		case nil:
			wr.buf.WriteByte(tagEmpty)
		case float64:
			wr.buf.WriteByte(tagFloat)
			wr.u64(math.Float64bits(ro))
		case int64:
			wr.buf.WriteByte(tagInt)
			wr.u64(uint64(ro))
		case string:
			wr.buf.WriteByte(tagStrptr)
			wr.str(ro)
		case Bytes:
			wr.buf.WriteByte(tagBytes)
			wr.str(string(ro))
		case *Executable:
			wr.buf.WriteByte(tagXptr)
			wr.str(ro.UUID)
		default:
			return types.NewSystemError("cannot serialize rodata of type %T", ro)
		}
	}

	wr.buf.WriteByte(labelMagic)
	wr.u32(uint32(len(ex.Labels)))
	for _, l := range ex.Labels {
		wr.u16(l)
	}
	return nil
}

// ocSum is the ones'-complement sum of the buffer's 16-bit big-endian
// words, with a virtual trailing zero byte when the length is odd. The
// carries accumulate in the upper bits; ocFinish folds and inverts them.
func ocSum(b []byte) uint32 {
	var sum uint32
	n := len(b) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if len(b)&1 != 0 {
		sum += uint32(b[len(b)-1]) << 8
	}
	return sum
}

func ocFinish(sum uint32) uint16 {
	sum = (sum & 0xffff) + (sum >> 16)
	sum = (sum & 0xffff) + (sum >> 16)
	return ^uint16(sum)
}

// VerifyChecksum reports whether the ones'-complement sum of the whole
// file, stored checksum included, is zero. The checksum always occupies
// the last two bytes; the content before it gets the virtual zero pad when
// its length is odd, exactly as the writer summed it.
func VerifyChecksum(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	sum := ocSum(data[:len(data)-2]) + uint32(binary.BigEndian.Uint16(data[len(data)-2:]))
	sum = (sum & 0xffff) + (sum >> 16)
	sum = (sum & 0xffff) + (sum >> 16)
	return uint16(sum) == 0xffff
}

// ReadProgram deserializes a byte-code stream, verifying its checksum and
// resolving the uuid cross-references between executables, and returns the
// entry point.
func ReadProgram(data []byte) (*Executable, error) {
	if !VerifyChecksum(data) {
		return nil, types.NewRuntimeError("bad checksum")
	}

	rd := &serialReader{data: data}
	var magic [4]byte
	rd.bytes(magic[:])
	if magic != headerMagic {
		return nil, types.NewRuntimeError("bad magic number")
	}
	count := rd.u32()
	version := rd.u16()
	if version > Version {
		return nil, types.NewRuntimeError("unsupported byte-code version %d", version)
	}
	fileName := rd.str()
	if rd.err != nil {
		return nil, rd.err
	}
	if count == 0 {
		return nil, types.NewRuntimeError("byte-code file has no executables")
	}

	exs := make([]*Executable, 0, count)
	for i := uint32(0); i < count; i++ {
		ex, err := rd.exec(fileName)
		if err != nil {
			return nil, err
		}
		exs = append(exs, ex)
	}

	if b := rd.u8(); rd.err != nil || b != footerMagic {
		return nil, types.NewRuntimeError("bad footer magic")
	}
	rd.u16() // the checksum field, verified above
	if rd.err != nil {
		return nil, rd.err
	}
	if rd.off != len(rd.data) {
		return nil, types.NewRuntimeError("%d byte(s) of trailing garbage", len(rd.data)-rd.off)
	}

	if err := resolveUUIDs(exs); err != nil {
		return nil, err
	}
	return exs[0], nil
}

// ReadProgramFile reads and deserializes a byte-code file, mapping it into
// memory when it is a regular file.
func ReadProgramFile(path string) (*Executable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Mode().IsRegular() && fi.Size() > 0 {
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err == nil {
			defer m.Unmap()
			return ReadProgram(m)
		}
		// fall through to a plain read when the map fails
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return ReadProgram(data)
}

type serialReader struct {
	data []byte
	off  int
	err  error
}

func (rd *serialReader) fail(format string, args ...any) {
	if rd.err == nil {
		rd.err = types.NewRuntimeError(format, args...)
	}
}

func (rd *serialReader) bytes(out []byte) {
	if rd.err != nil {
		return
	}
	if rd.off+len(out) > len(rd.data) {
		rd.fail("unexpected end of byte-code data")
		return
	}
	copy(out, rd.data[rd.off:])
	rd.off += len(out)
}

func (rd *serialReader) u8() byte {
	var b [1]byte
	rd.bytes(b[:])
	return b[0]
}

func (rd *serialReader) u16() uint16 {
	var b [2]byte
	rd.bytes(b[:])
	return binary.BigEndian.Uint16(b[:])
}

func (rd *serialReader) u32() uint32 {
	var b [4]byte
	rd.bytes(b[:])
	return binary.BigEndian.Uint32(b[:])
}

func (rd *serialReader) u64() uint64 {
	var b [8]byte
	rd.bytes(b[:])
	return binary.BigEndian.Uint64(b[:])
}

func (rd *serialReader) str() string {
	n := rd.u32()
	if rd.err != nil {
		return ""
	}
	if n == 0 || rd.off+int(n) > len(rd.data) {
		rd.fail("invalid string length %d", n)
		return ""
	}
	b := rd.data[rd.off : rd.off+int(n)]
	rd.off += int(n)
	if b[n-1] != 0 {
		rd.fail("string is not NUL-terminated")
		return ""
	}
	return string(b[:n-1])
}

func (rd *serialReader) exec(fileName string) (*Executable, error) {
	if m := rd.u8(); rd.err == nil && m != execMagic {
		rd.fail("bad executable magic %#x", m)
	}
	line := rd.u32()
	uuid := rd.str()
	if rd.err != nil {
		return nil, rd.err
	}

	ex := &Executable{
		UUID:     uuid,
		FileName: fileName,
		FileLine: int(line),
	}

	if m := rd.u8(); rd.err == nil && m != instrMagic {
		rd.fail("bad instruction section magic %#x", m)
	}
	nInstr := rd.u32()
	for i := uint32(0); i < nInstr && rd.err == nil; i++ {
		ex.Instr = append(ex.Instr, InstrFromWord(rd.u32()))
	}

	if m := rd.u8(); rd.err == nil && m != rodataMagic {
		rd.fail("bad rodata section magic %#x", m)
	}
	nRodata := rd.u32()
	for i := uint32(0); i < nRodata && rd.err == nil; i++ {
		switch tag := rd.u8(); tag {
		case tagEmpty:
			ex.Rodata = append(ex.Rodata, nil)
		case tagFloat:
			ex.Rodata = append(ex.Rodata, math.Float64frombits(rd.u64()))
		case tagInt:
			ex.Rodata = append(ex.Rodata, int64(rd.u64()))
		case tagStrptr:
			ex.Rodata = append(ex.Rodata, rd.str())
		case tagBytes:
			ex.Rodata = append(ex.Rodata, Bytes(rd.str()))
		case tagXptr:
			ex.Rodata = append(ex.Rodata, uuidRef(rd.str()))
		default:
			rd.fail("invalid rodata tag %#x", tag)
		}
	}

	if m := rd.u8(); rd.err == nil && m != labelMagic {
		rd.fail("bad label section magic %#x", m)
	}
	nLabel := rd.u32()
	for i := uint32(0); i < nLabel && rd.err == nil; i++ {
		ex.Labels = append(ex.Labels, rd.u16())
	}

	return ex, rd.err
}

// resolveUUIDs patches the uuid placeholders left in rodata slots with the
// actual executables, tolerating forward references. An unresolved or
// self-referential uuid is an error.
func resolveUUIDs(exs []*Executable) error {
	byUUID := make(map[string]*Executable, len(exs))
	for _, ex := range exs {
		byUUID[ex.UUID] = ex
	}
	for _, ex := range exs {
		for i, ro := range ex.Rodata {
			ref, ok := ro.(uuidRef)
			if !ok {
				continue
			}
			target := byUUID[string(ref)]
			if target == nil {
				return types.NewRuntimeError("unresolved executable reference %q", string(ref))
			}
			if target == ex {
				return types.NewRuntimeError("executable %q references itself", string(ref))
			}
			ex.Rodata[i] = target
		}
	}
	return nil
}
