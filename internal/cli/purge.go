package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"xpurge/internal/cmdlog"
	"xpurge/internal/metrics"
	"xpurge/internal/model"
	"xpurge/internal/quota"
	"xpurge/internal/session"
	"xpurge/internal/theme"
	"xpurge/internal/util"
)

func init() {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete posts in paced batches",
		Long: "Delete held posts matching --kind (or the ids given with --ids) one batch at a time. " +
			"Further pages are only fetched with --more.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("purge", func() error { return runPurge(cmd) })
		},
	}
	addCredentialFlags(cmd)
	cmd.Flags().StringP("kind", "k", "all", "Delete original, retweet, reply or all")
	cmd.Flags().String("ids", "", "Comma separated post ids to delete instead of --kind")
	cmd.Flags().IntP("batches", "b", 1, "Number of batches to run")
	cmd.Flags().Bool("more", false, "Fetch the next page when nothing matching is held")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask before each batch")
	RootCmd.AddCommand(cmd)
}

func runPurge(cmd *cobra.Command) error {
	kindFlag, _ := cmd.Flags().GetString("kind")
	idsFlag, _ := cmd.Flags().GetString("ids")
	batches, _ := cmd.Flags().GetInt("batches")
	more, _ := cmd.Flags().GetBool("more")
	yes, _ := cmd.Flags().GetBool("yes")
	kind, err := parseKind(kindFlag)
	if err != nil {
		return err
	}
	creds, err := credentials(cmd)
	if err != nil {
		return err
	}
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	if _, err := db.EnsureProfile(cmd.Context(), userID, ""); err != nil {
		return err
	}
	metrics.StartServer(cfg.Server.MetricsAddr)

	out := cmd.OutOrStdout()
	status := cmd.ErrOrStderr()
	ctl := newController(db, func(p session.Phase) {
		switch p {
		case session.PhaseListing:
			fmt.Fprintln(status, "fetching posts…")
		case session.PhaseDeleting:
			fmt.Fprintln(status, "deleting…")
		}
	})
	ctx := cmd.Context()
	st, err := ctl.Authenticate(ctx, session.New(userID), creds)
	if err != nil {
		return err
	}
	printSummary(out, st)

	in := bufio.NewReader(cmd.InOrStdin())
	explicit := util.ParseIDs(idsFlag)
	failed := map[string]bool{}
	for done := 0; done < batches; {
		if st.Phase == session.PhaseExhausted {
			fmt.Fprintln(out, "Nothing left to delete.")
			break
		}
		var sel []string
		if len(explicit) > 0 {
			sel = explicit[:min(len(explicit), ctl.MaxBatch())]
		} else {
			sel = session.SelectByKind(candidates(st.Items, failed), kind, ctl.MaxBatch())
		}
		if len(sel) == 0 {
			if len(explicit) == 0 && more && st.CanLoadMore() {
				if st, err = ctl.LoadMore(ctx, st); err != nil {
					return err
				}
				printSummary(out, st)
				continue
			}
			if st.MoreAvailable || st.CanLoadMore() {
				fmt.Fprintln(out, "No matching posts held. Run again with --more to fetch the next page.")
			} else {
				fmt.Fprintln(out, "No matching posts held.")
			}
			break
		}
		if !yes && !confirm(in, out, fmt.Sprintf("Delete up to %d posts?", len(sel))) {
			fmt.Fprintln(out, "Aborted.")
			break
		}
		st, err = ctl.Delete(ctx, st, sel)
		if errors.Is(err, quota.ErrQuotaExceeded) {
			fmt.Fprintln(out, theme.Warn("Daily limit reached. Upgrade to Pro or Lifetime for unlimited deletions."))
			break
		}
		if err != nil {
			return err
		}
		done++
		printBatch(out, st)
		for _, id := range st.LastBatch.Failed {
			failed[id] = true
		}
		if len(explicit) > 0 {
			explicit = explicit[st.LastBatch.Deleted+len(st.LastBatch.Failed):]
			if len(explicit) == 0 {
				break
			}
		}
		if st.Notice.Kind == quota.NoticeQuota {
			break
		}
	}
	fmt.Fprintf(out, "Deleted %d posts this run.\n", st.TotalDeleted)
	return nil
}

// candidates drops posts that already failed in this run.
func candidates(items []model.Item, failed map[string]bool) []model.Item {
	if len(failed) == 0 {
		return items
	}
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if !failed[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

func printBatch(out io.Writer, st session.State) {
	fmt.Fprintf(out, "batch %s: deleted %d", st.LastBatchID, st.LastBatch.Deleted)
	if n := len(st.LastBatch.Failed); n > 0 {
		fmt.Fprint(out, theme.Fail(fmt.Sprintf(", %d failed: %v", n, st.LastBatch.Failed)))
	}
	fmt.Fprintln(out)
	if !st.Notice.Empty() {
		fmt.Fprintln(out, theme.Warn(st.Notice.Message))
	}
	if st.MoreAvailable {
		fmt.Fprintln(out, "All held posts are gone but the account has more. Use --more to fetch the next page.")
	}
}
