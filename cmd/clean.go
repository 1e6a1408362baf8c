package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/djcass44/depstrip/pkg/archiveutil"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Removes a temporary archive left behind by an interrupted removal",
	RunE:  clean,
}

func init() {
	cleanCmd.Flags().StringP(flagPath, "p", "", "path to a package archive")

	_ = cleanCmd.MarkFlagRequired(flagPath)
}

func clean(cmd *cobra.Command, _ []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	path, _ := cmd.Flags().GetString(flagPath)
	tmpPath := path + archiveutil.TempSuffix

	log.Info("deleting temporary archive", "tmp", tmpPath)
	if err := os.Remove(tmpPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("nothing to clean")
			return nil
		}
		return fmt.Errorf("removing temporary archive: %w", err)
	}
	return nil
}
