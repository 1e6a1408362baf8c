package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/djcass44/depstrip/internal/manifest"
	v1 "github.com/djcass44/depstrip/pkg/api/v1"
	"github.com/djcass44/depstrip/pkg/remover"
	"github.com/djcass44/depstrip/pkg/stopwatch"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "remove dependencies from a package",
	RunE:  remove,
}

const (
	flagConfig     = "config"
	flagDependency = "dependency"
	flagSniff      = "sniff"
	flagTimings    = "timings"
)

func init() {
	removeCmd.Flags().StringP(flagPath, "p", "", "path to a package archive or unpacked package directory")
	removeCmd.Flags().StringArrayP(flagDependency, "d", nil, "name of a dependency to remove (may be repeated)")
	removeCmd.Flags().StringP(flagConfig, "c", "", "path to a removal manifest")
	removeCmd.Flags().Bool(flagSniff, false, "detect already-compressed archive entries by content")
	removeCmd.Flags().Bool(flagTimings, false, "log how long each removal took")

	_ = removeCmd.MarkFlagFilename(flagConfig, ".yaml", ".yml", ".json")
	removeCmd.MarkFlagsMutuallyExclusive(flagPath, flagConfig)
}

func remove(cmd *cobra.Command, _ []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	path, _ := cmd.Flags().GetString(flagPath)
	dependencies, _ := cmd.Flags().GetStringArray(flagDependency)
	configPath, _ := cmd.Flags().GetString(flagConfig)
	sniff, _ := cmd.Flags().GetBool(flagSniff)
	timings, _ := cmd.Flags().GetBool(flagTimings)

	var requests []v1.PackageRemoval
	switch {
	case configPath != "":
		removal, err := manifest.Read(configPath)
		if err != nil {
			return err
		}
		log.V(1).Info("read removal manifest", "name", removal.Name, "packages", len(removal.Spec.Packages))
		requests = removal.Spec.Packages
		sniff = sniff || removal.Spec.Sniff
	case path != "":
		requests = []v1.PackageRemoval{{Path: path, Dependencies: dependencies}}
	default:
		return errors.New("one of --path or --config must be set")
	}

	r := &remover.Remover{Sniff: sniff}
	if timings {
		r.Timer = stopwatch.New(nil)
	}

	results := make([]v1.RemovalResult, len(requests))
	var failed int
	for i, req := range requests {
		log.Info("removing dependencies", "path", req.Path, "dependencies", req.Dependencies)
		results[i] = r.RemoveDependencies(cmd.Context(), req.Path, req.Dependencies)
		if !results[i].Success {
			failed++
		}
	}
	if r.Timer != nil {
		r.Timer.Report(cmd.Context())
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "\t")
	var out any = results
	if configPath == "" {
		out = results[0]
	}
	if err := enc.Encode(out); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d removals failed", failed, len(requests))
	}
	return nil
}
