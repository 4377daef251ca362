package compiler

import "context"

// Fuzz is the entry point for go-fuzz runs against the three input
// surfaces of the package: source text, serialized byte code, and the
// textual assembly form.
func Fuzz(data []byte) int {
	score := 0
	if _, err := Assemble(context.Background(), "fuzz.evc", data); err == nil {
		score = 1
	}
	if _, err := ReadProgram(data); err == nil {
		score = 1
	}
	if _, err := Reassemble(data); err == nil {
		score = 1
	}
	return score
}
