// File: internal/shell/help.go
package shell

const helpText = `Available commands:
  help             - Display this help message
  ps               - List all simulated processes
  create [time]    - Create a new process with optional total time (default: 10)
  create -f <file> - Create a process from .pc script file
  kill <pid>       - Force terminate a process
  tick [n]         - Execute n clock ticks (default: 1)
  run <pid>        - Manually schedule a process to run
  block <pid> [t]  - Block a process for t ticks (default: 5)
  wakeup <pid>     - Wake up a blocked process
  pagetable <pid>  - Display page table for a process
  mem              - Display physical memory status
  memstats [pid]   - Display memory statistics (system or per-process)
  dev              - Display device ownership and wait queues
  script <file>    - Execute commands from a script file

  === File System Commands ===
  format           - Format the file system
  mount            - Mount the file system
  touch <file>     - Create a new file
  mkdir <dir>      - Create a new directory
  ls [path]        - List directory contents
  cd <path>        - Change current directory
  pwd              - Print working directory
  rm <file>        - Remove a file
  cat <file>       - Display file contents
  echo <text>      - Write text to file (use > for redirection)
  fsinfo           - Display file system information

  exit             - Shutdown the simulation
`
