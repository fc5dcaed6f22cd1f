package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/untitaker/heaptrack-trim/internal/buildinfo/cobrabuildinfo"
	"github.com/untitaker/heaptrack-trim/internal/cli"
	"github.com/untitaker/heaptrack-trim/pkg/heaptrack"
	"github.com/untitaker/heaptrack-trim/pkg/streamio"
	"github.com/untitaker/heaptrack-trim/pkg/xpflag"
)

const defaultBufSize = "32KiB"

var (
	skipSeconds  uint64
	preserveTime bool
	bufSize      uint64 = 32 << 10
	inputPath    string
	outputPath   string
	logLevel     string

	rootCmd = &cobra.Command{
		Use:           "heaptrack-trim",
		Short:         "Cut out irrelevant parts of heaptrack profiles, to reduce file size",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return run()
		},
	}
)

func init() {
	rootCmd.Flags().Uint64Var(&skipSeconds, "skip-seconds", 0, "Skip the first N seconds of the profile")
	if err := rootCmd.MarkFlagRequired("skip-seconds"); err != nil {
		panic(err)
	}
	rootCmd.Flags().BoolVar(&preserveTime, "preserve-time", false,
		"Do not rewrite timestamps. Keeps the scale of graphs in heaptrack-gui intact, but leaves gaps where data was removed")
	rootCmd.Flags().Var(xpflag.NewFunc(defaultBufSize, func(value string) error {
		size, err := humanize.ParseBytes(value)
		if err != nil {
			return err
		}
		if size == 0 {
			return errors.New("buffer size must be positive")
		}
		bufSize = size
		return nil
	}), "buf-size", "Read and write buffer size")
	rootCmd.Flags().StringVarP(&inputPath, "input", "i", streamio.Stdio,
		`Input trace path, "-" for stdin; .gz and .zst are decompressed`)
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", streamio.Stdio,
		`Output trace path, "-" for stdout; .gz and .zst are compressed`)
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")

	cobrabuildinfo.Init(rootCmd)
}

func run() error {
	logger, err := cli.NewLogger(logLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	input, err := streamio.Input(inputPath, int(bufSize))
	if err != nil {
		return err
	}
	defer func() {
		_ = input.Close()
	}()

	output, err := streamio.Output(outputPath, int(bufSize))
	if err != nil {
		return err
	}

	trimmer := heaptrack.New(heaptrack.Options{
		SkipThresholdMs: skipSeconds * 1000,
		PreserveTime:    preserveTime,
	}, logger)

	_, runErr := trimmer.Run(input.Reader, output)

	if err := output.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
