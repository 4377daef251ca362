package maincmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (mainer.ExitCode, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{
		Stdout: &out,
		Stderr: &errOut,
	}
	var c Cmd
	code := c.Main(append([]string{"evilcandy"}, args...), stdio)
	return code, out.String(), errOut.String()
}

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.evc")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestRunSource(t *testing.T) {
	path := writeScript(t, `print(2 + 3 * 4);`)
	code, out, errOut := runCmd(t, path)
	assert.Equal(t, mainer.Success, code, errOut)
	assert.Equal(t, "14\n", out)
}

func TestRunParseError(t *testing.T) {
	path := writeScript(t, `let x = ;`)
	code, _, errOut := runCmd(t, path)
	assert.Equal(t, mainer.Failure, code)
	assert.NotEmpty(t, errOut)
}

func TestRunUnhandledException(t *testing.T) {
	path := writeScript(t, `print(1 / 0);`)
	code, _, errOut := runCmd(t, path)
	assert.Equal(t, mainer.Failure, code)
	assert.Contains(t, errOut, "division by zero")
}

func TestCompileThenExec(t *testing.T) {
	path := writeScript(t, `function f(x) { return x * 2; } print(f(21));`)

	code, _, errOut := runCmd(t, "-c", path)
	require.Equal(t, mainer.Success, code, errOut)
	binPath := path + ".evc"
	_, err := os.Stat(binPath)
	require.NoError(t, err)

	code, out, errOut := runCmd(t, "-r", binPath)
	assert.Equal(t, mainer.Success, code, errOut)
	assert.Equal(t, "42\n", out)
}

func TestExecCorruptFile(t *testing.T) {
	path := writeScript(t, `print(1);`)
	code, _, _ := runCmd(t, "-c", path)
	require.Equal(t, mainer.Success, code)

	binPath := path + ".evc"
	data, err := os.ReadFile(binPath)
	require.NoError(t, err)
	data[len(data)/2] ^= 0x40
	require.NoError(t, os.WriteFile(binPath, data, 0o600))

	code, _, errOut := runCmd(t, "-r", binPath)
	assert.Equal(t, mainer.Failure, code)
	assert.Contains(t, errOut, "bad checksum")
}

func TestDisassemble(t *testing.T) {
	path := writeScript(t, `print(1);`)
	code, out, errOut := runCmd(t, "-d", path)
	assert.Equal(t, mainer.Success, code, errOut)
	assert.Contains(t, out, ".evilcandy")
	assert.Contains(t, out, ".start")
	assert.Contains(t, out, "push_const")
	assert.Contains(t, out, ".end")
}

func TestInvalidUsage(t *testing.T) {
	code, _, _ := runCmd(t) // no file
	assert.Equal(t, mainer.InvalidArgs, code)

	code, _, _ = runCmd(t, "-c", "-r", "x")
	assert.Equal(t, mainer.InvalidArgs, code)

	code, _, _ = runCmd(t, "-c", "-d", "x")
	assert.Equal(t, mainer.InvalidArgs, code)
}

func TestHelpAndVersion(t *testing.T) {
	var out bytes.Buffer
	c := Cmd{BuildVersion: "1.0", BuildDate: "2024-01-01"}
	code := c.Main([]string{"evilcandy", "--help"}, mainer.Stdio{Stdout: &out, Stderr: &out})
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, out.String(), "usage:")

	out.Reset()
	c = Cmd{BuildVersion: "1.0", BuildDate: "2024-01-01"}
	code = c.Main([]string{"evilcandy", "--version"}, mainer.Stdio{Stdout: &out, Stderr: &out})
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, out.String(), "1.0")
}

func TestLoadStatement(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.evc")
	require.NoError(t, os.WriteFile(lib, []byte(`let libval = 42;`), 0o600))
	main := filepath.Join(dir, "main.evc")
	require.NoError(t, os.WriteFile(main, []byte(`load "`+lib+`"; print(libval);`), 0o600))

	code, out, errOut := runCmd(t, main)
	assert.Equal(t, mainer.Success, code, errOut)
	assert.Equal(t, "42\n", out)
}
