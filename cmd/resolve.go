package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/parcelworks/addrsplit/internal/model"
)

var (
	resolveCountry   string
	resolveName      string
	resolvePipelines []string
	resolveNoSave    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <raw address>",
	Short: "Resolve one address across the configured pipelines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		input := model.SplitInput{
			Name:        resolveName,
			CountryCode: resolveCountry,
			RawAddress:  args[0],
		}
		for _, p := range resolvePipelines {
			input.Pipelines = append(input.Pipelines, model.Pipeline(p))
		}

		results := e.resolver.Resolve(ctx, input, "")

		sub := &model.Submission{
			UserID:  "cli",
			Input:   input,
			Results: results,
		}
		if !resolveNoSave {
			if err := e.store.PutSubmission(ctx, sub); err != nil {
				return eris.Wrap(err, "save submission")
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(sub), "encode result")
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveCountry, "country", "", "ISO-2 country hint")
	resolveCmd.Flags().StringVar(&resolveName, "name", "", "recipient name")
	resolveCmd.Flags().StringSliceVar(&resolvePipelines, "pipelines", nil, "pipelines to run (default all configured)")
	resolveCmd.Flags().BoolVar(&resolveNoSave, "no-save", false, "do not persist the submission")
	rootCmd.AddCommand(resolveCmd)
}
