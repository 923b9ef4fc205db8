package workload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nyasuto/mozlsm/internal/record"
)

func TestParseBulkLoadFile(t *testing.T) {
	in := "b1 10\nb2 20\n\nb3 30\n"
	recs, err := ParseBulkLoadFile(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []record.Record{{Key: 1, Value: 10}, {Key: 2, Value: 20}, {Key: 3, Value: 30}}, recs)
}

func TestParseBulkLoadFileRejectsWrongOpcode(t *testing.T) {
	_, err := ParseBulkLoadFile(strings.NewReader("p1 2\n"))
	require.Error(t, err)
}

func TestParseInstructions(t *testing.T) {
	in := "p1 10\ng1\np2 20\ng999\n"
	insts, err := ParseInstructions(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []Instruction{
		{Kind: OpPut, Key: 1, Value: 10},
		{Kind: OpGet, Key: 1},
		{Kind: OpPut, Key: 2, Value: 20},
		{Kind: OpGet, Key: 999},
	}, insts)
}

func TestParseInstructionsRejectsUnknownOpcode(t *testing.T) {
	_, err := ParseInstructions(strings.NewReader("x1 2\n"))
	require.Error(t, err)
}
