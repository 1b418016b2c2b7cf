// File: internal/shell/shell.go

// Package shell implements the interactive command loop above the
// kernel facade. Only command output goes to stdout; the banner, the
// prompt, and every diagnostic go to stderr so piped sessions stay
// machine-readable.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/tinixos/tinix/internal/kernel"
	"github.com/tinixos/tinix/internal/klog"
)

// Shell drives one interactive session.
type Shell struct {
	kernel  *kernel.Kernel
	hostFs  afero.Fs
	in      io.Reader
	out     io.Writer
	log     *klog.Log
	running bool
}

// New builds a shell reading commands from in and writing command
// output to out. Diagnostics go to the kernel log stream.
func New(k *kernel.Kernel, hostFs afero.Fs, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		kernel: k,
		hostFs: hostFs,
		in:     in,
		out:    out,
		log:    k.Log(),
	}
}

// Run executes the command loop until `exit` or EOF.
func (s *Shell) Run() error {
	fmt.Fprintf(s.log.Writer(), "Tinix OS Shell. Type 'help' for commands.\n")

	scanner := bufio.NewScanner(s.in)
	s.running = true
	for s.running {
		fmt.Fprintf(s.log.Writer(), "tinix> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if args := strings.Fields(line); len(args) > 0 {
			s.execute(args)
		}
	}
	return scanner.Err()
}

func (s *Shell) execute(args []string) {
	cmd := args[0]
	switch cmd {
	case "help":
		fmt.Fprint(s.out, helpText)

	case "exit":
		s.running = false

	case "format":
		if err := s.kernel.Format(); err != nil {
			s.log.Printf("Failed to format file system: %v", err)
		}

	case "mount":
		if err := s.kernel.Mount(); err != nil {
			s.log.Printf("Failed to mount file system: %v", err)
		}

	case "fsinfo":
		if err := s.kernel.FSInfo(); err != nil {
			s.log.FSError(err)
		}

	case "ls":
		path := "."
		if len(args) > 1 {
			path = args[1]
		}
		s.list(path)

	case "cd":
		path := "/"
		if len(args) > 1 {
			path = args[1]
		}
		if err := s.kernel.ChangeDir(path); err != nil {
			s.log.FSError(err)
		}

	case "pwd":
		fmt.Fprintf(s.out, "%s\n", s.kernel.Cwd())

	case "mkdir":
		if len(args) < 2 {
			s.log.Printf("Usage: mkdir <dirname>")
			return
		}
		if err := s.kernel.Mkdir(args[1]); err != nil {
			s.log.FSError(err)
		}

	case "touch":
		if len(args) < 2 {
			s.log.Printf("Usage: touch <filename>")
			return
		}
		if err := s.kernel.Touch(args[1]); err != nil {
			s.log.FSError(err)
		}

	case "rm":
		if len(args) < 2 {
			s.log.Printf("Usage: rm <filename>")
			return
		}
		if err := s.kernel.Remove(args[1]); err != nil {
			s.log.FSError(err)
		}

	case "cat":
		if len(args) < 2 {
			s.log.Printf("Usage: cat <filename>")
			return
		}
		s.cat(args[1])

	case "echo":
		s.echo(args[1:])

	case "script":
		if len(args) < 2 {
			s.log.Printf("Usage: script <filename>")
			return
		}
		s.script(args[1])

	case "create", "cr":
		s.create(args[1:])

	case "tick", "tk":
		n := 1
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v < 0 {
				s.log.Printf("Usage: tick [n]")
				return
			}
			n = v
		}
		s.kernel.Tick(n)

	case "dev":
		s.kernel.DevDump()

	case "ps":
		s.kernel.ProcDump()

	case "kill":
		if pid, ok := s.pidArg(args, "Usage: kill <pid>"); ok {
			if err := s.kernel.Kill(pid); err != nil {
				s.log.Printf("%v", err)
			}
		}

	case "run":
		if pid, ok := s.pidArg(args, "Usage: run <pid>"); ok {
			if err := s.kernel.Run(pid); err != nil {
				s.log.Printf("%v", err)
			}
		}

	case "block":
		if pid, ok := s.pidArg(args, "Usage: block <pid> [duration]"); ok {
			ticks := uint64(5)
			if len(args) > 2 {
				v, err := strconv.ParseUint(args[2], 10, 64)
				if err != nil {
					s.log.Printf("Usage: block <pid> [duration]")
					return
				}
				ticks = v
			}
			if err := s.kernel.Block(pid, ticks); err != nil {
				s.log.Printf("%v", err)
			}
		}

	case "wakeup":
		if pid, ok := s.pidArg(args, "Usage: wakeup <pid>"); ok {
			if err := s.kernel.Wakeup(pid); err != nil {
				s.log.Printf("%v", err)
			}
		}

	case "pagetable", "pt":
		if pid, ok := s.pidArg(args, "Usage: pagetable <pid>"); ok {
			s.kernel.PageTableDump(pid)
		}

	case "mem":
		s.kernel.MemDump()

	case "memstats", "ms":
		s.memstats(args)

	default:
		s.log.Printf("Unknown command: %s", cmd)
	}
}

func (s *Shell) pidArg(args []string, usage string) (int, bool) {
	if len(args) < 2 {
		s.log.Printf("%s", usage)
		return 0, false
	}
	pid, err := strconv.Atoi(args[1])
	if err != nil {
		s.log.Printf("%s", usage)
		return 0, false
	}
	return pid, true
}

func (s *Shell) list(path string) {
	entries, err := s.kernel.List(path)
	if err != nil {
		s.log.FSError(err)
		return
	}
	fmt.Fprintf(s.out, "Contents of %s:\n", path)
	for _, e := range entries {
		t := byte('-')
		if e.Dir {
			t = 'd'
		}
		fmt.Fprintf(s.out, "  %c %s (inode=%d, size=%d)\n", t, e.Name, e.InodeNum, e.Size)
	}
}

func (s *Shell) cat(path string) {
	data, err := s.kernel.Cat(path)
	if err != nil {
		s.log.FSError(err)
		return
	}
	if len(data) == 0 {
		return
	}
	s.out.Write(data)
	if data[len(data)-1] != '\n' {
		fmt.Fprintln(s.out)
	}
}

// echo joins its words and either prints them (no redirect) or writes
// them, newline-terminated, into the named file, truncating it first.
func (s *Shell) echo(args []string) {
	if len(args) == 0 {
		s.log.Printf("Usage: echo <text> [> filename]")
		return
	}

	var words []string
	redirect := -1
	for i, a := range args {
		if a == ">" {
			redirect = i
			break
		}
		words = append(words, a)
	}
	text := strings.Join(words, " ")

	if redirect < 0 {
		s.log.Printf("%s", text)
		return
	}
	if redirect+1 >= len(args) {
		s.log.Printf("Usage: echo <text> > <filename>")
		return
	}
	if err := s.kernel.Echo(args[redirect+1], text); err != nil {
		s.log.FSError(err)
	}
}

// script replays a command file, echoing each line to stderr.
func (s *Shell) script(path string) {
	data, err := afero.ReadFile(s.hostFs, path)
	if err != nil {
		s.log.Printf("Error: Could not open script file '%s'", path)
		return
	}

	s.log.Printf("Executing script: %s", path)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.log.Printf(">>> %s", line)
		if args := strings.Fields(line); len(args) > 0 {
			s.execute(args)
		}
	}
	s.log.Printf("Script execution completed.")
}

func (s *Shell) create(args []string) {
	if len(args) >= 2 && args[0] == "-f" {
		pid, err := s.kernel.CreateProcessFromFile(args[1])
		if err != nil {
			s.log.Printf("Failed to load program from %s: %v", args[1], err)
			return
		}
		s.log.ProcCreatedFrom(pid, args[1])
		return
	}

	length := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			s.log.Printf("Usage: create [time] | create -f <file>")
			return
		}
		length = v
	}
	pid := s.kernel.CreateComputeProcess(length)
	s.log.ProcCreated(pid)
}

func (s *Shell) memstats(args []string) {
	if len(args) > 1 {
		pid, err := strconv.Atoi(args[1])
		if err != nil {
			s.log.Printf("Usage: memstats [pid]")
			return
		}
		st := s.kernel.ProcessMemStats(pid)
		s.log.Printf("=== Memory Stats for PID %d ===", pid)
		s.log.Printf("Memory Accesses: %d", st.MemoryAccesses)
		s.log.Printf("Page Faults: %d", st.PageFaults)
		return
	}
	st := s.kernel.MemStats()
	s.log.Printf("=== System Memory Stats ===")
	s.log.Printf("Total Memory Accesses: %d", st.MemoryAccesses)
	s.log.Printf("Total Page Faults: %d", st.PageFaults)
}
