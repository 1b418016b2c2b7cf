// File: internal/proc/program.go
package proc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/tinixos/tinix/internal/klog"
)

// OpType enumerates the pc instruction set.
type OpType int

const (
	OpCompute OpType = iota
	OpMemRead
	OpMemWrite
	OpSleep
	OpDevRequest
	OpDevRelease
	OpFileOpen
	OpFileRead
	OpFileWrite
	OpFileClose
)

// Instruction is one decoded pc program line. Decoding happens once at
// process creation; tick execution is a dispatch, never a re-parse.
type Instruction struct {
	Op    OpType
	Arg1  uint64 // address, fd, device id, or tick count
	Arg2  uint64 // byte count for file reads/writes
	Path  string // FileOpen target
	HasFd bool   // FileOpen carried an explicit fd
}

// Program is a decoded pc instruction sequence.
type Program struct {
	Source       string
	Instructions []Instruction
}

// LoadProgram reads and decodes a pc script: UTF-8 lines, blank lines
// and #-comments skipped, invalid lines logged and dropped.
func LoadProgram(fsys afero.Fs, path string, log *klog.Log) (*Program, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %s: %w", path, err)
	}

	prog := &Program{Source: path}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inst, err := decodeLine(line)
		if err != nil {
			log.ProcSkipLine(i+1, line)
			continue
		}
		prog.Instructions = append(prog.Instructions, inst)
	}

	if len(prog.Instructions) == 0 {
		return nil, fmt.Errorf("no instructions in %s", path)
	}
	log.ProcLoaded(len(prog.Instructions), path)
	return prog, nil
}

// ComputeOnly builds a program of length Compute instructions, backing
// the `create [time]` shell command.
func ComputeOnly(length int) *Program {
	prog := &Program{Source: "<compute>"}
	for i := 0; i < length; i++ {
		prog.Instructions = append(prog.Instructions, Instruction{Op: OpCompute})
	}
	return prog
}

func decodeLine(line string) (Instruction, error) {
	fields := strings.Fields(line)
	op := fields[0]
	args := fields[1:]

	num := func(i int) (uint64, error) {
		if i >= len(args) {
			return 0, fmt.Errorf("missing operand %d", i)
		}
		return strconv.ParseUint(args[i], 0, 64)
	}

	switch op {
	case "C", "COMPUTE":
		return Instruction{Op: OpCompute}, nil
	case "R", "MEMREAD":
		addr, err := num(0)
		return Instruction{Op: OpMemRead, Arg1: addr}, err
	case "W", "MEMWRITE":
		addr, err := num(0)
		return Instruction{Op: OpMemWrite, Arg1: addr}, err
	case "S", "SLEEP":
		ticks, err := num(0)
		return Instruction{Op: OpSleep, Arg1: ticks}, err
	case "DR", "DEVREQ":
		dev, err := num(0)
		return Instruction{Op: OpDevRequest, Arg1: dev}, err
	case "DD", "DEVREL":
		dev, err := num(0)
		return Instruction{Op: OpDevRelease, Arg1: dev}, err
	case "FO", "FILEOPEN":
		switch len(args) {
		case 1:
			return Instruction{Op: OpFileOpen, Path: args[0]}, nil
		case 2:
			fd, err := num(0)
			return Instruction{Op: OpFileOpen, Arg1: fd, Path: args[1], HasFd: true}, err
		default:
			return Instruction{}, fmt.Errorf("FO wants [fd] path")
		}
	case "FR", "FILEREAD":
		fd, err := num(0)
		if err != nil {
			return Instruction{}, err
		}
		size, err := num(1)
		return Instruction{Op: OpFileRead, Arg1: fd, Arg2: size}, err
	case "FW", "FILEWRITE":
		fd, err := num(0)
		if err != nil {
			return Instruction{}, err
		}
		size, err := num(1)
		return Instruction{Op: OpFileWrite, Arg1: fd, Arg2: size}, err
	case "FC", "FILECLOSE":
		fd, err := num(0)
		return Instruction{Op: OpFileClose, Arg1: fd}, err
	}
	return Instruction{}, fmt.Errorf("unknown opcode %q", op)
}
