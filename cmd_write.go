package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prowriter/article"
	"prowriter/publisher"
	"prowriter/wizard"
)

var writeFlags struct {
	out  string
	html bool
	keep bool
}

var writeCmd = &cobra.Command{
	Use:   "write <topic>",
	Short: "Outline and write a whole article without the UI",
	Long: `write runs the wizard headless: it builds (or resumes) the outline for the
topic, fills every empty section in order and prints the assembled article.
The draft is saved to the configured store as it goes.`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func init() {
	f := writeCmd.Flags()
	f.StringVarP(&writeFlags.out, "out", "o", "", "write the article to this file instead of stdout")
	f.BoolVar(&writeFlags.html, "html", false, "render the article as HTML")
	f.BoolVar(&writeFlags.keep, "keep-going", false, "print the partial article even when some sections failed")
}

func runWrite(cmd *cobra.Command, args []string) error {
	agent, err := buildAgent(cfg)
	if err != nil {
		return err
	}
	st, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	wz, err := wizard.New(agent, st, wizardOptions(cfg)...)
	if err != nil {
		return err
	}
	defer wz.Close()

	ctx := cmd.Context()
	res, err := wz.Start(ctx, args[0])
	if err != nil {
		return err
	}
	logger.Info("outline ready",
		zap.String("topic", wz.Topic()),
		zap.Bool("cached", res.Cached),
		zap.Int("sections", len(wz.Sections())))

	genErr := wz.GenerateAllRemaining(ctx)
	wz.Flush()
	if genErr != nil {
		if errors.Is(genErr, wizard.ErrConfiguration) || !writeFlags.keep {
			return genErr
		}
		logger.Warn("some sections failed", zap.Error(genErr))
	}

	done := article.CompletedCount(wz.Sections())
	fmt.Fprintf(cmd.ErrOrStderr(), "%d/%d sections written\n", done, len(wz.Sections()))

	text := wz.Preview()
	if writeFlags.html {
		if text, err = publisher.RenderHTML(text); err != nil {
			return err
		}
	}
	return emit(cmd.OutOrStdout(), writeFlags.out, text)
}

func emit(stdout io.Writer, path, text string) error {
	if path == "" {
		_, err := io.WriteString(stdout, text+"\n")
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
