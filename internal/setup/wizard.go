// Package setup implements the interactive first-run wizard: it collects
// the bot token, writes the daemon config, and installs the Claude Code
// permission hook.
package setup

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/mvasilyev/jean-claude-stopkran/internal/config"
)

var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Answers holds what the wizard collected.
type Answers struct {
	Token       string
	Timeout     time.Duration
	InstallHook bool
}

// Prompt runs the interactive form.
func Prompt() (*Answers, error) {
	token := ""
	timeoutStr := "300"
	installHook := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("Create a bot via @BotFather and paste the token here.").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(func(s string) error {
					if !tokenPattern.MatchString(s) {
						return fmt.Errorf("expected <bot_id>:<hash>")
					}
					return nil
				}),
			huh.NewInput().
				Title("Auto-deny timeout (seconds)").
				Value(&timeoutStr).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n <= 0 {
						return fmt.Errorf("enter a positive number of seconds")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Install the Claude Code permission hook?").
				Value(&installHook),
		),
	)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	seconds, _ := strconv.Atoi(timeoutStr)
	return &Answers{
		Token:       token,
		Timeout:     time.Duration(seconds) * time.Second,
		InstallHook: installHook,
	}, nil
}

// Apply writes the config file and, when requested, the settings.json hook
// entry. hookCommand is the full command line Claude Code should run.
func Apply(a *Answers, configPath, settingsPath, hookCommand string, out io.Writer) error {
	cfg := &config.Config{
		Token:   a.Token,
		Timeout: a.Timeout,
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	store := config.NewStore(configPath, cfg)
	if err := store.Save(); err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Config saved to %s\n", configPath)

	if a.InstallHook {
		installed, err := InstallHook(settingsPath, hookCommand)
		if err != nil {
			return err
		}
		if installed {
			fmt.Fprintf(out, "✅ Hook added to %s\n", settingsPath)
		} else {
			fmt.Fprintln(out, "Hook already present in settings.json, skipping.")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Start the daemon:  stopkran serve")
	fmt.Fprintln(out, "  2. Send /start to your bot in Telegram")
	fmt.Fprintln(out, "  3. Claude Code permission requests now arrive there")
	return nil
}
