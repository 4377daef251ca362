package compiler

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serializeSrc = `
let greeting = "héllo";
let factor = 2.5;
let data = b"\x01\x02";

let mul = function(x, y = 10) {
	let helper = function(v) { return v * 2; };
	return helper(x) + y;
};

let i = 0;
while (i < 3) {
	i = i + 1;
}
print(mul(factor));
`

func TestSerializeRoundtrip(t *testing.T) {
	entry := mustAssemble(t, serializeSrc)

	var buf bytes.Buffer
	require.NoError(t, WriteProgram(&buf, entry))

	got, err := ReadProgram(buf.Bytes())
	require.NoError(t, err)

	// deserialize(serialize(T)) is the identity on the executable tree
	require.Equal(t, entry, got)

	// and re-serializing the read tree reproduces the identical file
	var buf2 bytes.Buffer
	require.NoError(t, WriteProgram(&buf2, got))
	assert.Equal(t, buf.Bytes(), buf2.Bytes())
}

func TestSerializeChecksum(t *testing.T) {
	entry := mustAssemble(t, serializeSrc)
	var buf bytes.Buffer
	require.NoError(t, WriteProgram(&buf, entry))
	data := buf.Bytes()

	require.True(t, VerifyChecksum(data))

	// flipping one bit anywhere in the file must be detected
	for off := 0; off < len(data); off++ {
		corrupt := append([]byte(nil), data...)
		corrupt[off] ^= 0x40
		_, err := ReadProgram(corrupt)
		require.Error(t, err, "offset %d", off)
		assert.Contains(t, err.Error(), "bad checksum", "offset %d", off)
	}
}

func TestSerializeTrailingGarbage(t *testing.T) {
	entry := mustAssemble(t, `print(1);`)
	var buf bytes.Buffer
	require.NoError(t, WriteProgram(&buf, entry))

	// appending garbage invalidates the checksum; to test the trailing
	// data check proper, re-checksum the extended content
	data := append(buf.Bytes(), 0, 0, 0)
	body := data[:len(data)-2]
	csum := ocFinish(ocSum(body))
	data[len(data)-2] = byte(csum >> 8)
	data[len(data)-1] = byte(csum)

	_, err := ReadProgram(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing")
}

func TestSerializeBadMagic(t *testing.T) {
	entry := mustAssemble(t, `print(1);`)
	var buf bytes.Buffer
	require.NoError(t, WriteProgram(&buf, entry))
	data := buf.Bytes()

	data[0] = 'X'
	body := data[:len(data)-2]
	csum := ocFinish(ocSum(body))
	data[len(data)-2] = byte(csum >> 8)
	data[len(data)-1] = byte(csum)

	_, err := ReadProgram(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad magic")
}

func TestSerializeFile(t *testing.T) {
	entry := mustAssemble(t, serializeSrc)
	path := t.TempDir() + "/prog.evc"
	require.NoError(t, SaveProgram(path, entry))

	got, err := ReadProgramFile(path)
	require.NoError(t, err)
	require.Equal(t, entry, got)
}

func TestDasmReassembleRoundtrip(t *testing.T) {
	entry := mustAssemble(t, serializeSrc)

	text, err := Dasm(entry)
	require.NoError(t, err)

	got, err := Reassemble(text)
	require.NoError(t, err)
	require.Equal(t, entry, got)

	// the reassembled tree serializes to the same bytes as the original
	var b1, b2 bytes.Buffer
	require.NoError(t, WriteProgram(&b1, entry))
	require.NoError(t, WriteProgram(&b2, got))
	assert.Equal(t, b1.Bytes(), b2.Bytes())
}

func TestReassembleErrors(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string
	}{
		{"empty", "", "missing .evilcandy header"},
		{"not header", ".start x000 1", "expected .evilcandy header"},
		{"no executables", `.evilcandy "f" 1`, "missing entry-point executable"},
		{"missing end", ".evilcandy \"f\" 1\n.start x000 1\nnop 0 0\n", "missing .end"},
		{"bad opcode", ".evilcandy \"f\" 1\n.start x000 1\nfrobnicate 0 0\n.end\n", "invalid opcode"},
		{"bad operand count", ".evilcandy \"f\" 1\n.start x000 1\nnop 0\n.end\n", "expected two operands"},
		{"bad rodata", ".evilcandy \"f\" 1\n.start x000 1\n.rodata wat 3\n.end\n", "invalid rodata type"},
		{"bad label", ".evilcandy \"f\" 1\n.start x000 1\n.label x\n.end\n", "invalid label"},
		{"unresolved xptr", ".evilcandy \"f\" 1\n.start x000 1\n.rodata xptr nope\nend 0 0\n.end\n", "unresolved executable reference"},
		{"self reference", ".evilcandy \"f\" 1\n.start x000 1\n.rodata xptr x000\nend 0 0\n.end\n", "references itself"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := Reassemble([]byte(c.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.err)
		})
	}
}
