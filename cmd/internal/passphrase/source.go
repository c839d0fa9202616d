package passphrase

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var errNoTerminal = errors.New("passphrase: no terminal available")

// Source lazily resolves a keystore passphrase from an environment variable or
// by prompting the operator. The value is cached after the first retrieval.
type Source struct {
	envVar string
	lookup func(string) (string, bool)
	prompt func() (string, error)

	once  sync.Once
	value string
	err   error
}

// NewSource constructs a passphrase source that checks envVar before
// interactively prompting on the terminal.
func NewSource(envVar string) *Source {
	return &Source{envVar: strings.TrimSpace(envVar), lookup: os.LookupEnv, prompt: promptTerminal}
}

// Static returns a source that always yields value, for non-interactive use.
func Static(value string) *Source {
	return &Source{
		lookup: func(string) (string, bool) { return "", false },
		prompt: func() (string, error) { return value, nil },
	}
}

func promptTerminal() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errNoTerminal
	}
	fmt.Fprint(os.Stderr, "Enter keystore passphrase: ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(bytes), nil
}

// Get returns the cached passphrase or resolves it if this is the first call.
// When the environment variable is set the exact value is used; otherwise the
// operator is prompted on stderr. Whitespace-only passphrases are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := s.lookup(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}

		passphrase, err := s.prompt()
		if errors.Is(err, errNoTerminal) {
			if s.envVar != "" {
				s.err = fmt.Errorf("keystore passphrase required; set %s or run interactively", s.envVar)
			} else {
				s.err = errors.New("keystore passphrase required and no terminal available")
			}
			return
		}
		if err != nil {
			s.err = err
			return
		}
		if strings.TrimSpace(passphrase) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		s.value = passphrase
	})

	return s.value, s.err
}
