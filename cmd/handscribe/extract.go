package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/handscribe/constants"
	"github.com/joseph-ayodele/handscribe/internal/common"
	"github.com/joseph-ayodele/handscribe/internal/encode"
	"github.com/joseph-ayodele/handscribe/internal/export"
	"github.com/joseph-ayodele/handscribe/internal/llm"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		modeFlag string
		outDir   string
		tables   bool
	)
	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Extract text from one image and write the export next to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := a.logger.With("file", args[0])

			mode, ok := constants.ParseMode(modeFlag)
			if !ok {
				return fmt.Errorf("unknown mode %q (want %s or %s)", modeFlag, constants.Printed, constants.Handwritten)
			}
			if tables && mode != constants.Printed {
				return fmt.Errorf("--xlsx needs --mode %s", constants.Printed)
			}

			client, err := newGeminiClient(a.cfg, logger)
			if err != nil {
				return err
			}
			payload, err := encode.EncodeFile(ctx, args[0])
			if err != nil {
				return common.WrapError(err, "read "+args[0])
			}
			if !constants.IsAcceptedMIME(payload.MimeType) {
				logger.Warn("extract.unlisted_type", "mime", payload.MimeType)
			}
			logger.Info("extract.image", "mime", payload.MimeType, "bytes", payload.DecodedLen())

			text, err := client.ExtractText(ctx, llm.NewExtractRequest(payload, mode))
			if err != nil {
				return err
			}
			if text == "" {
				return common.EmptyResultError()
			}
			logger.Info("extract.ok", "mode", string(mode), "chars", len(text))

			exporter := export.NewService(ctx, export.NewDocxEncoder(), logger)
			artifact, err := exporter.Export(ctx, mode, text, "")
			if err != nil {
				return err
			}
			path, err := export.WriteArtifact(outDir, artifact)
			if err != nil {
				return common.WrapError(err, "write "+artifact.Filename)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)

			if tables {
				data, n, err := export.TablesXLSX(text)
				if err != nil {
					return err
				}
				path, err := export.WriteArtifact(outDir, export.Artifact{
					Filename:    constants.TablesFilename,
					ContentType: constants.ContentTypeXLSX,
					Data:        data,
				})
				if err != nil {
					return err
				}
				logger.Info("extract.tables", "tables", n)
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modeFlag, "mode", string(constants.DefaultMode), "printed or handwritten")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&tables, "xlsx", false, "also write the tables of a printed result as a workbook")
	return cmd
}
