package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prowriter/article"
	"prowriter/metadata"
	"prowriter/store"
)

var metadataFlags struct {
	regenerate bool
	out        string
}

var metadataCmd = &cobra.Command{
	Use:   "metadata <topic>",
	Short: "Generate and save SEO metadata for a stored draft",
	Long: `metadata runs the metadata step for a saved draft: one model call produces
categories, titles, keywords, teasers, internal links and sources, which are
stored with the draft and printed in export format.

Drafts that already carry metadata are printed as stored unless --regenerate
is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runMetadata,
}

func init() {
	f := metadataCmd.Flags()
	f.BoolVar(&metadataFlags.regenerate, "regenerate", false, "ignore saved metadata and call the model again")
	f.StringVarP(&metadataFlags.out, "out", "o", "", "write the export to this file instead of stdout")
}

func runMetadata(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, catalog, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	d, err := st.FindByTopic(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no draft for topic %q; run `prowriter write` first", args[0])
	}
	if err != nil {
		return err
	}

	if d.Metadata != nil && !d.Metadata.IsEmpty() && !metadataFlags.regenerate {
		return emit(cmd.OutOrStdout(), metadataFlags.out, metadata.Render(*d.Metadata))
	}

	agent, err := buildAgent(cfg)
	if err != nil {
		return err
	}
	flow, err := metadata.New(agent, catalog, st, metadata.WithLogger(logger.Named("metadata")))
	if err != nil {
		return err
	}

	fullText := d.FullText
	if fullText == "" {
		fullText = article.FullText(d.Sections)
	}
	if _, err := flow.Generate(ctx, d.Topic, fullText); err != nil {
		return err
	}
	if err := flow.Save(ctx, d.Topic); err != nil {
		return err
	}
	logger.Info("metadata saved", zap.String("topic", d.Topic))

	text, err := flow.Export()
	if err != nil {
		return err
	}
	return emit(cmd.OutOrStdout(), metadataFlags.out, text)
}
