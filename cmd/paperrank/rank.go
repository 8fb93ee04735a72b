package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/observability"
	"github.com/helixir/paper-rank-service/internal/ranking"
)

var errRankInputRequired = errors.New("papers data and verbose query are required")

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Score paper records against a verbose query with BM25",
	Long: `rank reads a JSON array of paper records from --input (or stdin), scores
each abstract against --query, and writes the records with bm25_score and
relevanceScore set. Records keep their input order unless --sort is given.

If scoring fails the zero-filled records are still written, wrapped as
{"error": ..., "ranked_papers_fallback": [...]}, and the exit status is non-zero.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		query, _ := cmd.Flags().GetString("query")
		input, _ := cmd.Flags().GetString("input")
		opts := rankOptions{}
		opts.sort, _ = cmd.Flags().GetBool("sort")
		opts.pretty, _ = cmd.Flags().GetBool("pretty")

		in := cmd.InOrStdin()
		if input != "" && input != "-" {
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()
			in = f
		}

		ctx := observability.WithRequestID(cmd.Context(), uuid.NewString())
		return runRank(ctx, newLogger(cmd), in, cmd.OutOrStdout(), query, opts)
	},
}

func init() {
	rankCmd.Flags().StringP("query", "q", "", "verbose description of the papers sought (required)")
	rankCmd.Flags().StringP("input", "i", "", `file holding a JSON array of paper records ("-" or empty for stdin)`)
	rankCmd.Flags().Bool("sort", false, "order output by descending score")
	rankCmd.Flags().Bool("pretty", false, "indent JSON output")
	_ = rankCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(rankCmd)
}

type rankOptions struct {
	sort   bool
	pretty bool
}

// runRank decodes records from in, ranks them and encodes the result to out.
func runRank(ctx context.Context, logger zerolog.Logger, in io.Reader, out io.Writer, query string, opts rankOptions) error {
	var papers []domain.PaperRecord
	if err := json.NewDecoder(in).Decode(&papers); err != nil {
		return fmt.Errorf("decode paper records: %w", err)
	}
	return rankAndWrite(ctx, logger, papers, query, out, opts)
}

func rankAndWrite(ctx context.Context, logger zerolog.Logger, papers []domain.PaperRecord, query string, out io.Writer, opts rankOptions) error {
	if len(papers) == 0 || query == "" {
		return errRankInputRequired
	}

	result := ranking.NewRanker(logger, nil).Rank(ctx, papers, query)
	if !result.OK() {
		if err := writeJSON(out, map[string]any{
			"error":                  "Error during BM25 ranking: " + result.Err.Error(),
			"ranked_papers_fallback": result.Papers,
		}, opts.pretty); err != nil {
			return err
		}
		return fmt.Errorf("rank papers: %w", result.Err)
	}

	ranked := result.Papers
	if opts.sort {
		ranked = slices.Clone(ranked)
		slices.SortStableFunc(ranked, func(a, b domain.PaperRecord) int {
			sa, _ := a.Score()
			sb, _ := b.Score()
			return cmp.Compare(sb, sa)
		})
	}
	return writeJSON(out, ranked, opts.pretty)
}

func writeJSON(out io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(out)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
