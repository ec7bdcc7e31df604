package main

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"golang.org/x/term"
)

type promptFunc func(prompt string) (string, error)

func promptPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", errors.New("no terminal to read the password from; pass -p")
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprint(w, "Error: ")
	fmt.Fprintln(w, err)
	for _, hint := range errors.GetAllHints(err) {
		color.New(color.FgYellow).Fprintf(w, "Hint: %s\n", hint)
	}
}
