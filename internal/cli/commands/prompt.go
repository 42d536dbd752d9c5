package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

var errNonInteractive = errors.New("no terminal available for prompting")

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readLine reads one line from the scripted input
func (o *GlobalOptions) readLine() (string, error) {
	if o.lines == nil {
		o.lines = bufio.NewReader(o.In)
	}
	line, err := o.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readSecret prompts for a value without echoing it
func (o *GlobalOptions) readSecret(label string) (string, error) {
	if o.In != nil {
		return o.readLine()
	}
	if !stdinIsTerminal() {
		return "", errNonInteractive
	}

	fmt.Fprintf(o.stderr(), "%s: ", label)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(o.stderr())
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(secret), nil
}

// promptText asks for a line of input, offering def as the default
func (o *GlobalOptions) promptText(label, def string, validate func(string) error) (string, error) {
	if o.In != nil {
		line, err := o.readLine()
		if err != nil {
			return "", err
		}
		if line == "" {
			line = def
		}
		if validate != nil {
			if err := validate(line); err != nil {
				return "", err
			}
		}
		return line, nil
	}
	if !stdinIsTerminal() {
		return "", errNonInteractive
	}

	p := promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validate,
	}
	return p.Run()
}

// confirm asks a yes/no question; anything but yes is no
func (o *GlobalOptions) confirm(label string) (bool, error) {
	if o.In != nil {
		answer, err := o.readLine()
		if err != nil {
			return false, err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes", nil
	}
	if !stdinIsTerminal() {
		return false, fmt.Errorf("%w: pass --yes to skip confirmation", errNonInteractive)
	}

	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
