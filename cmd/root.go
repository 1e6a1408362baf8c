package cmd

import (
	"fmt"
	"os"

	"github.com/djcass44/go-utils/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var command = &cobra.Command{
	Use:          "depstrip",
	Short:        "remove dependencies from package descriptors",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel, _ := cmd.Flags().GetInt(flagLogLevel)
		logFormat, _ := cmd.Flags().GetString(flagLogFormat)

		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.Level(logLevel * -1))
		switch logFormat {
		case logFormatJSON:
		case logFormatConsole:
			zc.Encoding = logFormatConsole
			zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		default:
			return fmt.Errorf("unsupported log format '%s': expected one of %s, %s", logFormat, logFormatJSON, logFormatConsole)
		}

		_, ctx := logging.NewZap(cmd.Context(), zc)
		cmd.SetContext(ctx)
		return nil
	},
}

const (
	flagLogLevel  = "v"
	flagLogFormat = "log-format"
	flagPath      = "path"
)

const (
	logFormatJSON    = "json"
	logFormatConsole = "console"
)

const versionTemplate = `{{ .Name }} {{ .Version }}
`

func init() {
	command.PersistentFlags().Int(flagLogLevel, 0, "log level. Higher is more")
	command.PersistentFlags().String(flagLogFormat, logFormatJSON, "log encoding (json or console)")
	command.SetVersionTemplate(versionTemplate)
	command.AddCommand(removeCmd, listCmd, cleanCmd)
}

func Execute(version string) {
	command.Version = version
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
