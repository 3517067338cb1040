package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/procurelab/reqnotify/internal/build"
)

// NewUpdateCmd returns the "update" subcommand that self-updates the binary.
func NewUpdateCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update reqnotify to the latest release",
		Long:  "Check GitHub releases for a newer version of reqnotify and update the binary in place.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func runUpdate(skipConfirm bool) error {
	current, err := semver.NewVersion(strings.TrimPrefix(build.Version, "v"))
	if err != nil {
		return fmt.Errorf("cannot update a dev build; install a tagged release first")
	}

	fmt.Printf("Current version: %s\n", build.Version)
	fmt.Print("Checking for updates... ")

	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return fmt.Errorf("creating updater: %w", err)
	}

	release, found, err := updater.DetectLatest(context.Background(), selfupdate.ParseSlug("procurelab/reqnotify"))
	if err != nil {
		return fmt.Errorf("checking for updates: %w", err)
	}
	if !found {
		fmt.Println("no releases found.")
		return nil
	}

	latest, err := semver.NewVersion(release.Version())
	if err != nil {
		return fmt.Errorf("parsing release version %q: %w", release.Version(), err)
	}
	if !latest.GreaterThan(current) {
		fmt.Println("already up to date.")
		return nil
	}

	fmt.Printf("found %s\n", release.Version())

	if !skipConfirm {
		fmt.Printf("Update to %s? [y/N] ", release.Version())
		var input string
		fmt.Scanln(&input) //nolint:errcheck,gosec
		if input != "y" && input != "Y" {
			fmt.Println("Update canceled.")
			return nil
		}
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding current executable: %w", err)
	}

	fmt.Printf("Updating to %s...\n", release.Version())
	if err := updater.UpdateTo(context.Background(), release, exe); err != nil {
		return fmt.Errorf("updating: %w", err)
	}

	fmt.Printf("Updated to %s. Restart reqnotify to use the new version.\n", release.Version())
	return nil
}
