package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"lucidexport/pkg/auth"
	"lucidexport/pkg/config"
	lerrors "lucidexport/pkg/errors"
	"lucidexport/pkg/ui"
)

func newAuthCmd(global *globalOptions) *cobra.Command {
	var profile string

	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored Lucid API key",
		Long: `Manage the Lucid API key stored on this machine.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

A key given with --api-key, $` + auth.APIKeyEnv + ` or the config file always wins over
a stored key. Never share your API key or config files!`,
	}
	authCmd.PersistentFlags().StringVar(&profile, "profile", auth.DefaultProfile, "credential profile name")

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Store a Lucid API key securely",
		Example: `  # Interactive login (the key is not echoed)
  lucidexport auth login

  # Store a key for a second account
  lucidexport auth login --profile work

  # Non-interactive
  echo "$KEY" | lucidexport auth login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, profile)
		},
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newCredentialManager()
			if err != nil {
				return fmt.Errorf("failed to initialize credential manager: %w", err)
			}
			if err := manager.Delete(profile); err != nil {
				return err
			}
			ui.PrintSuccess("API key removed for profile " + profile)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show where the API key would be taken from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, global, profile)
		},
	}

	authCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
	return authCmd
}

func runLogin(cmd *cobra.Command, profile string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()

	if isTerminal(in) {
		auth.WriteAPIKeyGuide(out)
		fmt.Fprintln(out)
	}
	if sources := manager.Sources(profile); len(sources) > 0 {
		ui.PrintWarning(fmt.Sprintf("Replacing the key stored for profile %q", profile))
	}

	fmt.Fprint(out, "Lucid API key: ")
	key, err := readSecret(in, out)
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if key == "" {
		return lerrors.Config("API key is required")
	}

	store, err := manager.Store(&auth.Credential{Profile: profile, APIKey: key})
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("API key saved for profile %q", profile))
	ui.PrintInfo("Stored in", store)
	return nil
}

func runStatus(cmd *cobra.Command, global *globalOptions, profile string) error {
	cfg, err := loadConfig(cmd, global, &exportOptions{})
	if err != nil {
		return err
	}

	if cfg.Lucid.APIKey != "" {
		ui.PrintInfo("Active key", config.MaskSecret(cfg.Lucid.APIKey))
		ui.PrintInfo("Source", "flag, environment or config file")
	}

	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	cred, source, err := manager.Retrieve(profile)
	switch {
	case err == nil:
		masked := cred.Masked()
		ui.PrintInfo("Stored key", masked.APIKey)
		ui.PrintInfo("Stored in", source)
		ui.PrintInfo("Profile", masked.Profile)
		if !masked.LastModified.IsZero() {
			ui.PrintInfo("Last modified", masked.LastModified.Format("2006-01-02 15:04:05"))
		}
	case errors.Is(err, auth.ErrCredentialsNotFound):
		if cfg.Lucid.APIKey == "" {
			auth.WriteQuickGuide(cmd.OutOrStdout())
		} else {
			ui.PrintInfo("Stored key", "none")
		}
	default:
		return err
	}
	return nil
}

// isTerminal reports whether a command's input or output is a terminal
func isTerminal(stream interface{}) bool {
	f, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readSecret reads a line without echo from a terminal, or a plain line otherwise
func readSecret(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	fmt.Fprintln(out)
	return strings.TrimSpace(line), nil
}
