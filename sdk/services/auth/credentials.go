// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/ini.v1"

	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/utils"
)

// CredentialSource yields credentials for one authentication attempt.
// Authenticate calls it again before each retry.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// CredentialFunc adapts a plain function to CredentialSource.
type CredentialFunc func(ctx context.Context) (Credentials, error)

func (f CredentialFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// StaticCredentials always returns the same pair.
func StaticCredentials(username, password string) CredentialSource {
	return CredentialFunc(func(context.Context) (Credentials, error) {
		return Credentials{Username: username, Password: password}, nil
	})
}

// IniCredentials reads the [credentials] section of the INI at path on every call,
// so edits made between attempts are picked up.
type IniCredentials struct {
	Path string
}

func (s IniCredentials) Credentials(_ context.Context) (Credentials, error) {
	path := s.Path
	if path == "" {
		path = utils.GetIniPath()
	}
	// "#" and ";" are valid password characters, not comment markers
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials file: %w", err)
	}
	if !cfg.HasSection(utils.CredentialsSection) {
		return Credentials{}, fmt.Errorf("%s: missing [%s] section", path, utils.CredentialsSection)
	}
	sec := cfg.Section(utils.CredentialsSection)
	user := sec.Key(utils.Username).String()
	pass := sec.Key(utils.Password).String()
	if user == "" || pass == "" {
		return Credentials{}, fmt.Errorf("%s: [%s] needs both %s and %s", path, utils.CredentialsSection, utils.Username, utils.Password)
	}
	return Credentials{Username: user, Password: pass}, nil
}

// PromptCredentials asks for username and password on every call. When In is a
// terminal the password is read without echo.
type PromptCredentials struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func NewPromptCredentials(in io.Reader, out io.Writer) *PromptCredentials {
	return &PromptCredentials{In: in, Out: out, reader: bufio.NewReader(in)}
}

func (p *PromptCredentials) Credentials(_ context.Context) (Credentials, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}

	fmt.Fprint(p.Out, "Username: ")
	user, err := p.readLine()
	if err != nil {
		return Credentials{}, fmt.Errorf("error in reading username: %w", err)
	}

	fmt.Fprint(p.Out, "Password: ")
	var pass string
	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.Out)
		if err != nil {
			return Credentials{}, fmt.Errorf("error in reading password: %w", err)
		}
		pass = string(b)
	} else {
		pass, err = p.readLine()
		if err != nil {
			return Credentials{}, fmt.Errorf("error in reading password: %w", err)
		}
	}

	if user == "" {
		return Credentials{}, errors.New("empty username")
	}
	return Credentials{Username: user, Password: pass}, nil
}

func (p *PromptCredentials) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
