package maincmd

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"

	"github.com/evilcandy-lang/evilcandy/internal/filetest"
	"github.com/evilcandy-lang/evilcandy/lang/compiler"
)

var testUpdateExecTests = flag.Bool("test.update-exec-tests", false, "If set, replace expected execution results with actual results.")

// TestExecGolden compiles and runs the scripts in testdata/in and compares
// what they print (and the unhandled exceptions they raise) against the
// recorded golden files in testdata/out.
func TestExecGolden(t *testing.T) {
	ctx := context.Background()
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".evc") {
		t.Run(fi.Name(), func(t *testing.T) {
			ex, err := compiler.AssembleFile(ctx, filepath.Join(srcDir, fi.Name()))
			require.NoError(t, err)

			var buf, ebuf bytes.Buffer
			stdio := mainer.Stdio{
				Stdout: &buf,
				Stderr: &ebuf,
			}

			// error is ignored, we just want it printed to ebuf
			_ = RunProgram(ctx, stdio, nil, ex)
			filetest.DiffOutput(t, fi, buf.String(), resultDir, testUpdateExecTests)
			filetest.DiffErrors(t, fi, ebuf.String(), resultDir, testUpdateExecTests)
		})
	}
}
