package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mzheleznov/profilehub/internal/client/session"
	"github.com/mzheleznov/profilehub/internal/client/upload"
)

func (a *App) requireLogin() (session.Session, bool) {
	current, state := a.sessions.Current()
	if state != session.StateAuthenticated {
		printlnFn("Not logged in")
		return session.Session{}, false
	}
	return current, true
}

// SetName prompts for a new display name and updates the profile.
func (a *App) SetName(ctx context.Context) error {
	if _, ok := a.requireLogin(); !ok {
		return nil
	}

	username, err := getSimpleText(a.reader, "Enter new display name", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.sessions.UpdateUsername(ctx, username); err != nil {
		printlnFn("Update failed:", err)
		return err
	}

	printlnFn("Display name updated")
	return nil
}

// Avatar uploads a profile picture from a local file or a URL, printing
// transfer progress as it goes.
func (a *App) Avatar(ctx context.Context, args []string) error {
	if _, ok := a.requireLogin(); !ok {
		return nil
	}

	arg := args[0]
	var src upload.PayloadSource
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		src = &upload.NetworkSource{URL: arg}
	} else {
		src = &upload.FileSource{Path: arg}
	}

	job, err := a.uploads.Start(ctx, src)
	if err != nil {
		printlnFn("Upload failed:", err)
		return err
	}

	for p := range job.Progress() {
		if p.Total > 0 {
			printlnFn(fmt.Sprintf("Uploading... %d%% (%d/%d bytes)", p.Transferred*100/p.Total, p.Transferred, p.Total))
		}
	}

	if err := job.Wait(ctx); err != nil {
		printlnFn("Upload failed:", err)
		return err
	}

	printlnFn("Avatar updated:", job.ImageRef())
	return nil
}
