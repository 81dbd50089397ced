// Package prompt asks the user questions on the console.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// ErrCancelled is returned when the user backs out of a prompt.
var ErrCancelled = errors.New("cancelled by user")

// SoundPlayer defines the interface for playing sounds
type SoundPlayer interface {
	Play(name string)
}

// Prompter reads answers from In and writes questions to Out.
type Prompter struct {
	NonInteractive bool
	Sound          SoundPlayer

	in  *bufio.Reader
	out io.Writer
}

// New returns a Prompter on in and out. Nil streams use the process stdio.
func New(in io.Reader, out io.Writer, nonInteractive bool) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{NonInteractive: nonInteractive, in: bufio.NewReader(in), out: out}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) play(name string) {
	if p.Sound != nil {
		p.Sound.Play(name)
	}
}

// Confirm asks a yes/no question. Non-interactive mode answers yes.
func (p *Prompter) Confirm(question string) bool {
	if p.NonInteractive {
		return true
	}

	fmt.Fprintf(p.out, "%s (y/n): ", question)
	response, err := p.readLine()
	if err != nil {
		return false
	}
	response = strings.ToLower(response)
	confirmed := response == "y" || response == "yes"
	if confirmed || response == "n" || response == "no" {
		p.play("select")
	}
	return confirmed
}

// ConfirmOverwrite asks before replacing an existing file.
func (p *Prompter) ConfirmOverwrite(path string) (bool, error) {
	return p.Confirm(fmt.Sprintf("%s already exists. Replace it?", path)), nil
}

// Choose shows a numbered menu and returns the chosen index. Entering 0 or
// reaching end of input cancels.
func (p *Prompter) Choose(title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, ErrCancelled
	}
	if p.NonInteractive {
		return 0, nil
	}

	fmt.Fprintf(p.out, "\n%s\n\n", title)
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, o)
	}
	fmt.Fprintf(p.out, "\nEnter choice (1-%d) or 0 to cancel: ", len(options))

	for {
		response, err := p.readLine()
		if err != nil {
			return -1, ErrCancelled
		}
		if response == "0" {
			return -1, ErrCancelled
		}
		choice, err := strconv.Atoi(response)
		if err == nil && choice >= 1 && choice <= len(options) {
			p.play("select")
			return choice - 1, nil
		}
		fmt.Fprintf(p.out, "Invalid choice. Please enter 0-%d: ", len(options))
	}
}

// Ask reads a free-form answer, returning def when the answer is empty.
func (p *Prompter) Ask(question, def string) string {
	if p.NonInteractive {
		return def
	}
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	response, err := p.readLine()
	if err != nil || response == "" {
		return def
	}
	return response
}

// SelectFolder opens the Windows folder picker. Elsewhere, and in
// non-interactive mode, it falls back to a typed path.
func (p *Prompter) SelectFolder(title, defaultPath string) (string, error) {
	if p.NonInteractive {
		return defaultPath, nil
	}
	if runtime.GOOS != "windows" {
		path := p.Ask(title, defaultPath)
		if path == "" {
			return "", ErrCancelled
		}
		return path, nil
	}
	return browseForFolder(title)
}

func browseForFolder(title string) (string, error) {
	ole.CoInitialize(0)
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("Shell.Application")
	if err != nil {
		return "", fmt.Errorf("failed to create Shell object: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return "", fmt.Errorf("failed to get IDispatch interface: %w", err)
	}
	defer shell.Release()

	// 0x10: BIF_EDITBOX, lets the user type a path.
	folderObj, err := oleutil.CallMethod(shell, "BrowseForFolder", 0, title, 0x10)
	if err != nil {
		return "", fmt.Errorf("failed to show folder dialog: %w", err)
	}
	if folderObj.Value() == nil {
		return "", ErrCancelled
	}

	folderItem := folderObj.ToIDispatch()
	if folderItem == nil {
		return "", ErrCancelled
	}
	defer folderItem.Release()

	selfProp, err := oleutil.GetProperty(folderItem, "Self")
	if err != nil {
		return "", fmt.Errorf("failed to get folder item: %w", err)
	}
	selfDispatch := selfProp.ToIDispatch()
	defer selfDispatch.Release()

	pathProp, err := oleutil.GetProperty(selfDispatch, "Path")
	if err != nil {
		return "", fmt.Errorf("failed to get folder path: %w", err)
	}

	selected := pathProp.ToString()
	if selected == "" {
		return "", ErrCancelled
	}
	return selected, nil
}
