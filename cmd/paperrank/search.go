package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/paper-rank-service/internal/app"
	"github.com/helixir/paper-rank-service/internal/dedup"
	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/papersources"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search paper sources and print merged paper records",
	Long: `search queries the enabled paper sources (or those named with --sources)
concurrently, merges the results with duplicates removed and prints them as a
JSON array of paper records. With --rank the merged records are scored with
BM25 against --rank-query, or against --query when that is empty.

Sources that fail are reported on stderr; the command only fails when every
source does.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger := newLogger(cmd)

		opts := searchOptions{}
		opts.query, _ = cmd.Flags().GetString("query")
		opts.sources, _ = cmd.Flags().GetStringSlice("sources")
		opts.maxResults, _ = cmd.Flags().GetInt("max-results")
		opts.yearStart, _ = cmd.Flags().GetInt("year-start")
		opts.yearEnd, _ = cmd.Flags().GetInt("year-end")
		opts.rank, _ = cmd.Flags().GetBool("rank")
		opts.rankQuery, _ = cmd.Flags().GetString("rank-query")
		opts.pretty, _ = cmd.Flags().GetBool("pretty")
		if opts.maxResults <= 0 {
			opts.maxResults = cfg.Search.DefaultMaxResults
		}

		registry := app.NewRegistry(cfg, logger, nil)
		merger := dedup.NewMerger(dedup.MergerConfig{AuthorThreshold: cfg.Search.AuthorThreshold, Logger: logger})
		return runSearch(cmd.Context(), logger, registry, merger, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
	},
}

func init() {
	searchCmd.Flags().StringP("query", "q", "", "search query (required)")
	searchCmd.Flags().StringSlice("sources", nil, "comma-separated sources: pubmed, arxiv, semantic_scholar, crossref, scholar (default: all enabled)")
	searchCmd.Flags().Int("max-results", 0, "maximum results per source (default: search.default_max_results)")
	searchCmd.Flags().Int("year-start", 0, "earliest publication year")
	searchCmd.Flags().Int("year-end", 0, "latest publication year")
	searchCmd.Flags().Bool("rank", false, "score the merged records with BM25")
	searchCmd.Flags().String("rank-query", "", "verbose query used with --rank (default: --query)")
	searchCmd.Flags().Bool("pretty", false, "indent JSON output")
	_ = searchCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(searchCmd)
}

type searchOptions struct {
	query      string
	sources    []string
	maxResults int
	yearStart  int
	yearEnd    int
	rank       bool
	rankQuery  string
	pretty     bool
}

func runSearch(
	ctx context.Context,
	logger zerolog.Logger,
	registry *papersources.Registry,
	merger *dedup.Merger,
	out, errOut io.Writer,
	opts searchOptions,
) error {
	sourceTypes := make([]domain.SourceType, 0, len(opts.sources))
	for _, s := range opts.sources {
		st := domain.SourceType(strings.TrimSpace(s))
		if !st.IsValid() {
			return fmt.Errorf("unsupported source: %s", s)
		}
		sourceTypes = append(sourceTypes, st)
	}

	from, to := papersources.YearRange(opts.yearStart, opts.yearEnd)
	results := registry.SearchSources(ctx, papersources.SearchParams{
		Query:      opts.query,
		DateFrom:   from,
		DateTo:     to,
		MaxResults: opts.maxResults,
	}, sourceTypes)
	if len(results) == 0 {
		return fmt.Errorf("no paper sources are enabled")
	}

	lists := make([][]*domain.Paper, 0, len(results))
	for _, res := range results {
		if res.Error != nil {
			fmt.Fprintf(errOut, "%s: %v\n", res.Source.DisplayName(), res.Error)
			continue
		}
		if res.Result != nil {
			lists = append(lists, res.Result.Papers)
		}
	}
	if len(lists) == 0 {
		return fmt.Errorf("all %d sources failed", len(results))
	}

	records := domain.NewPaperRecords(merger.Merge(lists...))
	if !opts.rank || len(records) == 0 {
		return writeJSON(out, records, opts.pretty)
	}

	rankQuery := opts.rankQuery
	if rankQuery == "" {
		rankQuery = opts.query
	}
	return rankAndWrite(ctx, logger, records, rankQuery, out, rankOptions{sort: true, pretty: opts.pretty})
}
