package cli

import (
	"context"
	"fmt"
	"os"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for an email, username, and password and creates a new
// account. On success the session is established and persisted.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	username, err := getSimpleText(a.reader, "Enter display name", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	current, err := a.sessions.Register(ctx, email, password, username)
	if err != nil {
		printlnFn("Registration failed:", err)
		return err
	}

	printlnFn("Welcome,", current.Username)
	return nil
}

// Login prompts for credentials and authenticates.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	current, err := a.sessions.Login(ctx, email, password)
	if err != nil {
		printlnFn("Login failed:", err)
		return err
	}

	printlnFn("Welcome,", current.Username)
	return nil
}

// Logout destroys the session with the server and clears local state.
func (a *App) Logout(ctx context.Context) error {
	if err := a.sessions.Logout(ctx); err != nil {
		printlnFn("Logout failed:", err)
		return err
	}
	printlnFn("Logged out")
	return nil
}

// Whoami prints the current profile.
func (a *App) Whoami(ctx context.Context) error {
	current, ok := a.requireLogin()
	if !ok {
		return nil
	}

	printlnFn(fmt.Sprintf("%s <%s>", current.Username, current.Email))
	if current.ProfileImageRef != "" {
		printlnFn("Avatar:", current.ProfileImageRef)
	}
	return nil
}
