package cmd

import (
	"fmt"

	"github.com/djcass44/depstrip/pkg/descriptor"
	"github.com/djcass44/depstrip/pkg/remover"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list the dependencies of a package",
	RunE:  list,
}

const flagKey = "key"

func init() {
	listCmd.Flags().StringP(flagPath, "p", "", "path to a package archive or unpacked package directory")
	listCmd.Flags().String(flagKey, "dependencies", "descriptor key that holds the dependencies")

	_ = listCmd.MarkFlagRequired(flagPath)
}

func list(cmd *cobra.Command, _ []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	path, _ := cmd.Flags().GetString(flagPath)
	key, _ := cmd.Flags().GetString(flagKey)

	pkg, err := (&remover.Remover{}).Open(path)
	if err != nil {
		return err
	}
	text, err := pkg.ReadDescriptor(cmd.Context())
	if err != nil {
		return err
	}

	keys := descriptor.Keys(text, key)
	log.V(1).Info("read descriptor", "path", path, "count", len(keys))
	for _, k := range keys {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}
