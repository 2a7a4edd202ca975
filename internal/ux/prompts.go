package ux

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when a prompt is needed but stdin is not a terminal
var ErrNotInteractive = errors.New("input required but stdin is not a terminal")

// IsInteractive reports whether f is attached to a terminal
func IsInteractive(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// LoginForm holds the fields of the login prompt
type LoginForm struct {
	Email    string
	Password string
}

// RegistrationForm holds the fields of the registration prompt
type RegistrationForm struct {
	Name     string
	Email    string
	Password string
}

// PromptLogin asks for whatever login fields are still empty
func PromptLogin(form *LoginForm) error {
	var fields []huh.Field
	if form.Email == "" {
		fields = append(fields, emailInput(&form.Email))
	}
	if form.Password == "" {
		fields = append(fields, passwordInput(&form.Password))
	}
	return runFields(fields)
}

// PromptRegistration asks for whatever registration fields are still empty
func PromptRegistration(form *RegistrationForm) error {
	var fields []huh.Field
	if form.Name == "" {
		fields = append(fields, huh.NewInput().
			Title("Name").
			Value(&form.Name).
			Validate(required("name")))
	}
	if form.Email == "" {
		fields = append(fields, emailInput(&form.Email))
	}
	if form.Password == "" {
		fields = append(fields, passwordInput(&form.Password))
	}
	return runFields(fields)
}

// PromptForConfirmation displays a yes/no confirmation prompt
func PromptForConfirmation(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	confirm := huh.NewConfirm().
		Title(message).
		Value(&confirmed)

	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}

func emailInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Email").
		Placeholder("you@example.com").
		Value(value).
		Validate(required("email"))
}

func passwordInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Value(value).
		Validate(required("password"))
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func runFields(fields []huh.Field) error {
	if len(fields) == 0 {
		return nil
	}
	if !IsInteractive(os.Stdin) {
		return ErrNotInteractive
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}
