package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/nrf91.go/pkg/at"
	"github.com/robotalks/nrf91.go/pkg/secfs"
)

// Shell provides ishell backed interactive shell over the secure filesystem.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell *ishell.Shell
	FS    *secfs.FS
	Ctx   context.Context

	lastErr error
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// ErrCommandExpected is returned when no command is given in non-interactive mode.
	ErrCommandExpected = errors.New("command expected")

	commands = []*ishell.Cmd{
		&ListCmd,
		&ChdirCmd,
		&PwdCmd,
		&CatCmd,
		&WriteCmd,
		&PutCmd,
		&RemoveCmd,
		&RmdirCmd,
		&ProvisionCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(fsys *secfs.FS) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell: ishell.New(),
		FS:    fsys,
		Ctx:   context.Background(),
	}
	s.Shell.Set(shellKey, s)
	s.updatePrompt()
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

type printer struct {
	c *ishell.Context
}

func (p printer) Write(b []byte) (int, error) {
	p.c.Print(string(b))
	return len(b), nil
}

// Action wraps a command implementation as ishell command func.
func Action(fn func(s *Shell, w io.Writer, args []string) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		err := fn(s, printer{c: c}, c.Args)
		s.lastErr = err
		if err != nil {
			c.Err(err)
		}
	}
}

func (s *Shell) updatePrompt() {
	s.Shell.SetPrompt(fmt.Sprintf("secfs:%s > ", s.FS.Getwd()))
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

// List prints folder entries, folders with a trailing slash.
func (s *Shell) List(w io.Writer, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	entries, err := s.FS.ReadDir(s.Ctx, path)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	if s.OutputJSON {
		return json.NewEncoder(w).Encode(names)
	}
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
	return nil
}

// Chdir changes the working folder.
func (s *Shell) Chdir(w io.Writer, args []string) error {
	path := "/"
	if len(args) > 0 {
		path = args[0]
	}
	if err := s.FS.Chdir(path); err != nil {
		return err
	}
	s.updatePrompt()
	return nil
}

// Pwd prints the working folder.
func (s *Shell) Pwd(w io.Writer, args []string) error {
	_, err := fmt.Fprintln(w, s.FS.Getwd())
	return err
}

// Cat prints a credential.
func (s *Shell) Cat(w io.Writer, args []string) error {
	if err := requireArgs(args, 1, "cat PATH"); err != nil {
		return err
	}
	f, err := s.FS.Open(s.Ctx, args[0], "r")
	if err != nil {
		return err
	}
	defer f.Close()
	content, err := f.ReadString()
	if err != nil {
		return err
	}
	if s.OutputJSON {
		return json.NewEncoder(w).Encode(map[string]string{"path": f.Path(), "content": content})
	}
	fmt.Fprint(w, content)
	if !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(w)
	}
	return nil
}

func (s *Shell) writeFile(path, content string) error {
	f, err := s.FS.Open(s.Ctx, path, "w")
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write stores the remaining arguments as credential content.
func (s *Shell) Write(w io.Writer, args []string) error {
	if err := requireArgs(args, 2, "write PATH CONTENT..."); err != nil {
		return err
	}
	return s.writeFile(args[0], strings.Join(args[1:], " "))
}

// Put stores a local file as credential content.
func (s *Shell) Put(w io.Writer, args []string) error {
	if err := requireArgs(args, 2, "put PATH LOCAL-FILE"); err != nil {
		return err
	}
	content, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	return s.writeFile(args[0], string(content))
}

// Remove deletes credentials.
func (s *Shell) Remove(w io.Writer, args []string) error {
	if err := requireArgs(args, 1, "rm PATH..."); err != nil {
		return err
	}
	for _, path := range args {
		if err := s.FS.Remove(s.Ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// Rmdir deletes all credentials in a folder.
func (s *Shell) Rmdir(w io.Writer, args []string) error {
	if err := requireArgs(args, 1, "rmdir PATH"); err != nil {
		return err
	}
	return s.FS.Rmdir(s.Ctx, args[0])
}

// Provision writes the credentials listed in manifest files.
func (s *Shell) Provision(w io.Writer, args []string) error {
	if err := requireArgs(args, 1, "provision MANIFEST..."); err != nil {
		return err
	}
	for _, fn := range args {
		m, err := secfs.LoadManifest(fn)
		if err != nil {
			return err
		}
		n, err := m.Apply(s.Ctx, s.FS.CMNG)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %d credentials provisioned\n", fn, n)
	}
	return nil
}

// Run runs the shell. In evaluation mode, the error of the command is returned.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			return err
		}
		return s.lastErr
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return ErrCommandExpected
}

var (
	// ListCmd lists a folder.
	ListCmd = ishell.Cmd{
		Name:    "ls",
		Aliases: []string{"dir"},
		Help:    "[PATH]",
		Func:    Action((*Shell).List),
	}

	// ChdirCmd changes the working folder.
	ChdirCmd = ishell.Cmd{
		Name: "cd",
		Help: "[PATH]",
		Func: Action((*Shell).Chdir),
	}

	// PwdCmd prints the working folder.
	PwdCmd = ishell.Cmd{
		Name: "pwd",
		Func: Action((*Shell).Pwd),
	}

	// CatCmd prints a credential.
	CatCmd = ishell.Cmd{
		Name: "cat",
		Help: "PATH",
		Func: Action((*Shell).Cat),
	}

	// WriteCmd writes a credential.
	WriteCmd = ishell.Cmd{
		Name: "write",
		Help: "PATH CONTENT...",
		Func: Action((*Shell).Write),
	}

	// PutCmd writes a credential from a local file.
	PutCmd = ishell.Cmd{
		Name: "put",
		Help: "PATH LOCAL-FILE",
		Func: Action((*Shell).Put),
	}

	// RemoveCmd deletes credentials.
	RemoveCmd = ishell.Cmd{
		Name:    "rm",
		Aliases: []string{"del"},
		Help:    "PATH...",
		Func:    Action((*Shell).Remove),
	}

	// RmdirCmd deletes all credentials of a folder, or all folders at root.
	RmdirCmd = ishell.Cmd{
		Name: "rmdir",
		Help: "PATH",
		Func: Action((*Shell).Rmdir),
	}

	// ProvisionCmd applies credential manifests.
	ProvisionCmd = ishell.Cmd{
		Name: "provision",
		Help: "MANIFEST...",
		Func: Action((*Shell).Provision),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	dialer := at.NewConfig().NewDialer()
	defer dialer.Close()
	fsys := secfs.New(secfs.NewCMNG(dialer))
	if err := New(fsys).Run(flag.Args()...); err != nil {
		dialer.Close()
		glog.Exit(err)
	}
}
