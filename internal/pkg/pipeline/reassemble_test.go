package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "olia", want: "olia"},
		{in: "  a   b \n\t c ", want: "a b c"},
		{in: "Labas. . Rytas", want: "Labas. Rytas"},
		{in: "Labas. ! ? Rytas", want: "Labas. Rytas"},
		{in: "Labas... Rytas", want: "Labas... Rytas"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.in))
		})
	}
}

func TestReassemble(t *testing.T) {
	got, err := reassemble([]segmentResult{
		{index: 2, text: "trys.", succeeded: true},
		failedSegment(1),
		{index: 0, text: " vienas. ", succeeded: true},
	})
	require.Nil(t, err)
	assert.Equal(t, "vienas. [segment 2 not transcribed] trys.", got)
}

func TestReassemble_AllFailed(t *testing.T) {
	_, err := reassemble([]segmentResult{failedSegment(0), failedSegment(1)})
	var re *ReassemblyError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 2, re.Segments)
	_, err = reassemble(nil)
	assert.True(t, errors.As(err, &re))
}
