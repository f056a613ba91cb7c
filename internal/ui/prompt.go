package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/fatih/color"
	"golang.org/x/term"
)

const maxTextWidth = 100

// TextWidth returns the width to wrap console text at: the terminal width
// minus a margin, capped at 100 columns
func TextWidth() int {
	cols, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 0 {
		return maxTextWidth
	}
	return min(maxTextWidth, cols-2)
}

// Wrap breaks text into lines of at most width columns at word boundaries.
// Words longer than width are kept whole on their own line.
func Wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if width < 1 {
		width = 1
	}

	var b strings.Builder
	lineLen := 0
	for _, w := range words {
		switch {
		case lineLen == 0:
		case lineLen+1+len(w) > width:
			b.WriteByte('\n')
			lineLen = 0
		default:
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(w)
		lineLen += len(w)
	}
	return b.String()
}

// IrreversibleNotice is shown before rtag modifies any image
func IrreversibleNotice(width int) string {
	return Wrap("NOTICE: rtag is under active development. Expect bugs and changes."+
		" It is recommended for you to have a backup of your images before running rtag.", width) +
		"\n\n" +
		Wrap("rtag is about to write new tags to the metadata of the images in the current directory."+
			" This operation:", width) +
		"\n" +
		"  - is irreversible\n" +
		"  - will modify the image files\n"
}

// ErrNoAnswer means standard input ended before an answer was given
var ErrNoAnswer = errors.New("no answer on standard input")

// ConfirmIrreversible prints the notice and asks whether to continue.
// When stdin is not a terminal the answer is read as a plain line, so it can
// be piped in.
func ConfirmIrreversible() (bool, error) {
	yellow := color.New(color.FgYellow)
	yellow.Println(IrreversibleNotice(TextWidth()))

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print("Continue? [y/n] ")
		return readConfirmation(os.Stdin)
	}

	confirmed, err := PromptYesNo("Continue?", false)
	if errors.Is(err, terminal.InterruptErr) {
		return false, nil
	}
	return confirmed, err
}

// readConfirmation reads one line from r; only "y" confirms
func readConfirmation(r io.Reader) (bool, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return false, fmt.Errorf("failed to read answer: %w", err)
		}
		if line == "" {
			return false, ErrNoAnswer
		}
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Printf("✓ %s\n", message)
}

// ShowError displays an error message
func ShowError(message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(os.Stderr, "✗ %s\n", message)
}

// ShowWarning displays a warning
func ShowWarning(message string) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(os.Stderr, "! %s\n", message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	blue := color.New(color.FgBlue)
	blue.Println(message)
}

// ShowSection displays a section heading
func ShowSection(title string) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Printf("\n%s\n", title)
	fmt.Println(strings.Repeat("─", len([]rune(title))))
}

// PromptYesNo asks a yes/no question
func PromptYesNo(message string, defaultYes bool) (bool, error) {
	answer := false
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultYes,
	}

	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, err
	}

	return answer, nil
}

// PromptInput asks for a free-form value, offering defaultValue
func PromptInput(message, defaultValue, help string) (string, error) {
	var value string
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
		Help:    help,
	}

	if err := survey.AskOne(prompt, &value); err != nil {
		return "", err
	}

	return strings.TrimSpace(value), nil
}
