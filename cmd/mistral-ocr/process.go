// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mistral-ocr/internal/pipeline"
	"github.com/pdiddy/mistral-ocr/internal/secrets"
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "OCR PDF or image files into Markdown",
	Long: `Process runs each file through the OCR pipeline in turn. Images are
wrapped into a one-page PDF first. After each file, except the last, you are
asked whether to continue; --auto skips the prompt.

The API key comes from --api-key, MISTRAL_API_KEY (or a .env file), the
config file, or .secrets/mistral-api-key, in that order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.String("api-key", "", "Mistral API key")
	f.Bool("auto", false, "process all files without prompting between them")
	f.String("output-root", "", "directory for run outputs (default outputs)")
	f.Bool("manifest", false, "write run.yaml into every run directory")
	f.Int("expiry", 0, "signed URL lifetime in hours (default 1)")
	f.String("model", "", "OCR model (default mistral-ocr-latest)")
	f.Duration("timeout", 0, "HTTP timeout per request (default none)")

	_ = viper.BindPFlag("output.root", f.Lookup("output-root"))
	_ = viper.BindPFlag("output.manifest", f.Lookup("manifest"))
	_ = viper.BindPFlag("ocr.expiry_hours", f.Lookup("expiry"))
	_ = viper.BindPFlag("ocr.model", f.Lookup("model"))
	_ = viper.BindPFlag("ocr.timeout", f.Lookup("timeout"))

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	flagKey, _ := cmd.Flags().GetString("api-key")
	apiKey, err := resolveAPIKey(flagKey, secrets.DefaultDir)
	if err != nil {
		return err
	}

	auto, _ := cmd.Flags().GetBool("auto")
	var cont pipeline.ContinueFunc
	if !auto {
		cont = promptContinue(os.Stdin, os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := pipeline.New(loadConfig())
	result := p.ProcessBatch(ctx, args, apiKey, cont, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d of %d file(s) failed", result.Failed, result.Total())
	}
	return nil
}

// promptContinue asks on out whether to go on with the next file. An empty
// answer continues; "q" or end of input stops.
func promptContinue(in io.Reader, out io.Writer) pipeline.ContinueFunc {
	r := bufio.NewReader(in)
	return func(path string, err error) bool {
		if err != nil {
			fmt.Fprintf(out, "\nError processing %s. Press Enter for the next file, or 'q' to quit: ", path)
		} else {
			fmt.Fprintf(out, "\nFinished %s. Press Enter for the next file, or 'q' to quit: ", path)
		}
		line, rerr := r.ReadString('\n')
		if rerr != nil && line == "" {
			fmt.Fprintln(out)
			return false
		}
		if strings.EqualFold(strings.TrimSpace(line), "q") {
			fmt.Fprintln(out, "Stopping at user request.")
			return false
		}
		return true
	}
}
