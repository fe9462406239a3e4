package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/witverse/internal/config"
	"github.com/dharsanguruparan/witverse/internal/database"
	"github.com/dharsanguruparan/witverse/internal/identity"
	"github.com/dharsanguruparan/witverse/internal/model"
	pdfutil "github.com/dharsanguruparan/witverse/internal/pdf"
	"github.com/dharsanguruparan/witverse/internal/repository"
	"github.com/dharsanguruparan/witverse/internal/validation"
)

const policyExcerptRunes = 200

func loadConfig() (*config.Config, error) {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

func withPool(ctx context.Context, fn func(*pgxpool.Pool) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(pool)
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "validate <logo|screenshot|banner|build|privacy_policy> <file>",
		Short:     "Check a file against the upload rules of an asset kind",
		Args:      cobra.ExactArgs(2),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateFile(cmd.OutOrStdout(), validation.AssetKind(args[0]), args[1])
		},
	}
	return cmd
}

func kindNames() []string {
	var names []string
	for _, k := range validation.Kinds() {
		names = append(names, string(k))
	}
	return names
}

func validateFile(out io.Writer, kind validation.AssetKind, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	mtype := mimetype.Detect(data)
	contentType := mtype.String()
	name := filepath.Base(path)
	if err := validation.CheckFile(kind, name, contentType, int64(len(data))); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: ok (%s, %s)\n", name, contentType, validation.FormatSize(int64(len(data))))
	if kind == validation.KindPrivacyPolicy && mtype.Is("application/pdf") {
		summary, err := pdfutil.Inspect(data, policyExcerptRunes)
		if err != nil {
			return fmt.Errorf("inspect policy: %w", err)
		}
		fmt.Fprintf(out, "pages: %d\nexcerpt: %s\n", summary.Pages, summary.Excerpt)
	}
	return nil
}

func newTokenCmd() *cobra.Command {
	var (
		email, displayName, password, mobile string
		ttl                                  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <developer-id>",
		Short: "Issue a bearer token for a developer account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := []error{validation.CheckEmail(email), validation.CheckDisplayName(displayName)}
			if password != "" {
				checks = append(checks, validation.CheckPassword(password))
			}
			if mobile != "" {
				checks = append(checks, validation.CheckMobile(mobile))
			}
			for _, err := range checks {
				if err != nil {
					return err
				}
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := identity.NewTokenVerifier([]byte(cfg.JWTSecret)).Issue(identity.Identity{ID: args[0], Email: email}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Developer email address")
	cmd.Flags().StringVar(&displayName, "name", "", "Developer display name")
	cmd.Flags().StringVar(&password, "password", "", "Check a registration password against the account rules")
	cmd.Flags().StringVar(&mobile, "mobile", "", "Developer mobile number")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCategoriesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List store categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				list, err := repository.NewCategoryRepository(pool).ListCategories(cmd.Context())
				if err != nil {
					return err
				}
				return printCategories(cmd.OutOrStdout(), list, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printCategories(out io.Writer, list []model.Category, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, c := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.Description)
	}
	return tw.Flush()
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count apps by review status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				apps := repository.NewAppRepository(pool)
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "STATUS\tAPPS")
				for _, status := range []model.AppStatus{model.StatusPendingReview, model.StatusApproved, model.StatusRejected} {
					n, err := apps.CountByStatus(cmd.Context(), status)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%d\n", status, n)
				}
				return tw.Flush()
			})
		},
	}
}
