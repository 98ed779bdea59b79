package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// TerminalAuthenticator implements auth.UserAuthenticator by prompting for
// the login code and 2FA password.
type TerminalAuthenticator struct {
	PhoneNumber string // prompted when empty

	in           *bufio.Reader
	out          io.Writer
	readPassword func() ([]byte, error)
}

func NewTerminalAuthenticator(phone string) *TerminalAuthenticator {
	return &TerminalAuthenticator{
		PhoneNumber: phone,
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		readPassword: func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		},
	}
}

func (*TerminalAuthenticator) SignUp(context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("signing up is not supported, log in with an existing account")
}

func (*TerminalAuthenticator) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (a *TerminalAuthenticator) Code(context.Context, *tg.AuthSentCode) (string, error) {
	return a.prompt("A verification code has been sent to your Telegram account.\nEnter code: ")
}

func (a *TerminalAuthenticator) Phone(context.Context) (string, error) {
	if a.PhoneNumber != "" {
		return a.PhoneNumber, nil
	}
	return a.prompt("Enter phone in international format (e.g. +1234567890): ")
}

func (a *TerminalAuthenticator) Password(context.Context) (string, error) {
	fmt.Fprint(a.out, "Enter 2FA password: ")
	pwd, err := a.readPassword()
	fmt.Fprintln(a.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password with %w", err)
	}
	return strings.TrimSpace(string(pwd)), nil
}

func (a *TerminalAuthenticator) prompt(text string) (string, error) {
	fmt.Fprint(a.out, text)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
