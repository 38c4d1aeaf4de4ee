// fbfetch downloads posts, comments, and insight metrics from the
// Facebook Graph API and optionally converts comments into traced records
// for analysis pipelines. Results are written to stdout as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	gfb "github.com/avsocial/go-facebook-api-wrapper"
	"github.com/avsocial/go-facebook-api-wrapper/pkg/types"
	"github.com/avsocial/go-facebook-api-wrapper/traced"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	fieldsFlag  []string
	sinceFlag   string
	untilFlag   string
	metricsFlag []string
	rawFlag     bool
	convertFlag bool
	exportFlag  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClient reads the config and creates a gfb.Client with a stderr logger.
func newClient() (*gfb.Client, *Config, error) {
	cfg, err := ReadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client, err := gfb.NewClient(&gfb.Config{
		AccessToken: cfg.AccessToken,
		BaseURL:     cfg.BaseURL,
		PageLimit:   cfg.PageLimit,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing client: %w", err)
	}

	return client, cfg, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "fbfetch",
	Short: "Download Facebook posts, comments, and insights",
}

var postCmd = &cobra.Command{
	Use:   "post <post-id>",
	Short: "Fetch a single post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		post, err := client.GetPost(cmd.Context(), args[0], fieldsFlag)
		if err != nil {
			return err
		}
		return printJSON(post)
	},
}

var postsCmd = &cobra.Command{
	Use:   "posts <page-id>",
	Short: "Fetch all posts published by a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		request := &types.PostsRequest{
			PageID: args[0],
			Fields: fieldsFlag,
		}
		if sinceFlag != "" {
			t, err := time.Parse(time.RFC3339, sinceFlag)
			if err != nil {
				return fmt.Errorf("parsing --since: %w", err)
			}
			request.CreatedAfter = t
		}
		if untilFlag != "" {
			t, err := time.Parse(time.RFC3339, untilFlag)
			if err != nil {
				return fmt.Errorf("parsing --until: %w", err)
			}
			request.CreatedBefore = t
		}

		posts, err := client.GetPublishedPosts(cmd.Context(), request)
		if err != nil {
			return err
		}
		return printJSON(posts)
	},
}

var commentsCmd = &cobra.Command{
	Use:   "comments <post-id>",
	Short: "Fetch all comments on a post, including replies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := newClient()
		if err != nil {
			return err
		}

		request := &types.CommentsRequest{
			PostID: args[0],
			Fields: fieldsFlag,
		}

		exportPath := exportFlag
		if exportPath == "" {
			exportPath = cfg.RawExportLog
		}
		if exportPath != "" {
			sink, err := gfb.OpenRawExportLog(exportPath)
			if err != nil {
				return err
			}
			defer sink.Close()
			request.RawExportLog = sink
		}

		comments, err := client.GetAllComments(cmd.Context(), request)
		if err != nil {
			return err
		}

		if !convertFlag {
			return printJSON(comments)
		}

		if cfg.Dataset == "" || cfg.Actor == "" {
			return fmt.Errorf("--convert requires dataset and actor in the config")
		}

		table := traced.NewMemoryUUIDTable("")
		records, err := traced.ConvertCommentsToTracedData(cmd.Context(), cfg.Actor, cfg.Dataset, comments, table)
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var insightsCmd = &cobra.Command{
	Use:   "insights <post-id>",
	Short: "Fetch insight metrics for a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		if len(metricsFlag) == 0 {
			return fmt.Errorf("--metrics is required")
		}
		metrics := splitCommaList(metricsFlag)

		if rawFlag {
			insights, err := client.GetRawPostInsights(cmd.Context(), args[0], metrics)
			if err != nil {
				return err
			}
			return printJSON(insights)
		}

		insights, err := client.GetPostInsights(cmd.Context(), args[0], metrics)
		if err != nil {
			return err
		}
		return printJSON(insights)
	},
}

// splitCommaList flattens repeated flags and comma-separated values into
// one list, so both "--metrics a,b" and "--metrics a --metrics b" work.
func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "fbfetch.toml", "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	postCmd.Flags().StringSliceVar(&fieldsFlag, "fields", nil, "fields to project (id is always included)")

	postsCmd.Flags().StringSliceVar(&fieldsFlag, "fields", nil, "fields to project (id is always included)")
	postsCmd.Flags().StringVar(&sinceFlag, "since", "", "only posts created at or after this RFC 3339 instant")
	postsCmd.Flags().StringVar(&untilFlag, "until", "", "only posts created before this RFC 3339 instant")

	commentsCmd.Flags().StringSliceVar(&fieldsFlag, "fields", nil, "fields to project (id and from are always included)")
	commentsCmd.Flags().StringVar(&exportFlag, "raw-export-log", "", "append the raw download to this JSON-lines file")
	commentsCmd.Flags().BoolVar(&convertFlag, "convert", false, "convert comments to traced records")

	insightsCmd.Flags().StringSliceVar(&metricsFlag, "metrics", nil, "insight metrics to request")
	insightsCmd.Flags().BoolVar(&rawFlag, "raw", false, "return the API's native metric shape")

	rootCmd.AddCommand(postCmd, postsCmd, commentsCmd, insightsCmd)
}
