package proc

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinixos/tinix/internal/klog"
)

func loadFromString(t *testing.T, text string) (*Program, *bytes.Buffer, error) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "prog.pc", []byte(text), 0o644))
	var logBuf bytes.Buffer
	prog, err := LoadProgram(fsys, "prog.pc", klog.New(&logBuf))
	return prog, &logBuf, err
}

func TestDecodeOpcodes(t *testing.T) {
	text := `# header comment
C
W 0x2000
R 8192
S 3
DR 0
DD 0
FO 9 /d/f
FO /d/g
FR 9 3
FW 9 5
FC 9
`
	prog, _, err := loadFromString(t, text)
	require.NoError(t, err)
	require.Len(t, prog.Instructions, 11)

	assert.Equal(t, Instruction{Op: OpCompute}, prog.Instructions[0])
	assert.Equal(t, Instruction{Op: OpMemWrite, Arg1: 0x2000}, prog.Instructions[1])
	assert.Equal(t, Instruction{Op: OpMemRead, Arg1: 8192}, prog.Instructions[2])
	assert.Equal(t, Instruction{Op: OpSleep, Arg1: 3}, prog.Instructions[3])
	assert.Equal(t, Instruction{Op: OpDevRequest, Arg1: 0}, prog.Instructions[4])
	assert.Equal(t, Instruction{Op: OpDevRelease, Arg1: 0}, prog.Instructions[5])
	assert.Equal(t, Instruction{Op: OpFileOpen, Arg1: 9, Path: "/d/f", HasFd: true}, prog.Instructions[6])
	assert.Equal(t, Instruction{Op: OpFileOpen, Path: "/d/g"}, prog.Instructions[7])
	assert.Equal(t, Instruction{Op: OpFileRead, Arg1: 9, Arg2: 3}, prog.Instructions[8])
	assert.Equal(t, Instruction{Op: OpFileWrite, Arg1: 9, Arg2: 5}, prog.Instructions[9])
	assert.Equal(t, Instruction{Op: OpFileClose, Arg1: 9}, prog.Instructions[10])
}

func TestDecodeLongMnemonics(t *testing.T) {
	prog, _, err := loadFromString(t, "COMPUTE\nMEMWRITE 4096\nSLEEP 2\n")
	require.NoError(t, err)
	require.Len(t, prog.Instructions, 3)
	assert.Equal(t, OpCompute, prog.Instructions[0].Op)
	assert.Equal(t, OpMemWrite, prog.Instructions[1].Op)
}

func TestInvalidLinesLoggedAndSkipped(t *testing.T) {
	prog, logBuf, err := loadFromString(t, "C\nBOGUS 1\nW nonsense\nC\n")
	require.NoError(t, err)
	assert.Len(t, prog.Instructions, 2)
	logs := logBuf.String()
	assert.Contains(t, logs, "Skipping invalid instruction at line 2: BOGUS 1")
	assert.Contains(t, logs, "Skipping invalid instruction at line 3: W nonsense")
}

func TestBlankAndCommentLines(t *testing.T) {
	prog, _, err := loadFromString(t, "\n\n# all comments\n\nC\n# trailing\n")
	require.NoError(t, err)
	assert.Len(t, prog.Instructions, 1)
}

func TestEmptyProgramFails(t *testing.T) {
	_, _, err := loadFromString(t, "# nothing here\n")
	assert.Error(t, err)
}

func TestMissingFileFails(t *testing.T) {
	var logBuf bytes.Buffer
	_, err := LoadProgram(afero.NewMemMapFs(), "missing.pc", klog.New(&logBuf))
	assert.Error(t, err)
}

func TestComputeOnly(t *testing.T) {
	prog := ComputeOnly(5)
	assert.Len(t, prog.Instructions, 5)
	for _, inst := range prog.Instructions {
		assert.Equal(t, OpCompute, inst.Op)
	}
}

func TestAllocFdSkipsUsed(t *testing.T) {
	p := newPCB(1, ComputeOnly(1))
	assert.Equal(t, 3, p.allocFd())
	p.Files[3] = &OpenFile{}
	p.Files[4] = &OpenFile{}
	assert.Equal(t, 5, p.allocFd())
	p.Files[9] = &OpenFile{}
	assert.Equal(t, 5, p.allocFd())
}
