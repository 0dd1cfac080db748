package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prowriter/publisher"
)

var publishCmd = &cobra.Command{
	Use:   "publish <topic>",
	Short: "Send a stored draft to the publishing endpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	st, catalog, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	pub, err := buildPublisher(cfg, st, catalog)
	if err != nil {
		return err
	}
	if pub == nil {
		return fmt.Errorf("%w: set publish.endpoint in %s", publisher.ErrNotConfigured, configPathOrDefault())
	}

	res, err := pub.Publish(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	logger.Info("published", zap.String("id", res.RemoteID), zap.String("url", res.URL))
	fmt.Fprintf(cmd.OutOrStdout(), "published %q\n", res.Title)
	if res.URL != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.URL)
	}
	return nil
}
