package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"xpurge/internal/cmdlog"
	"xpurge/internal/model"
	"xpurge/internal/session"
	"xpurge/internal/util"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("list", func() error { return runList(cmd) })
		},
	}
	addCredentialFlags(cmd)
	cmd.Flags().IntP("pages", "p", 1, "Pages to fetch")
	cmd.Flags().StringP("kind", "k", "all", "Only show original, retweet or reply")
	cmd.Flags().Bool("json", false, "Print items as JSON")
	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command) error {
	pages, _ := cmd.Flags().GetInt("pages")
	kindFlag, _ := cmd.Flags().GetString("kind")
	asJSON, _ := cmd.Flags().GetBool("json")
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

	ctl := newController(db, nil)
	ctx := cmd.Context()
	st, err := ctl.Authenticate(ctx, session.New(userID), creds)
	if err != nil {
		return err
	}
	for i := 1; i < pages && st.CanLoadMore(); i++ {
		if st, err = ctl.LoadMore(ctx, st); err != nil {
			return err
		}
	}

	var shown []model.Item
	for _, it := range st.Items {
		if kind == "" || it.Kind == kind {
			shown = append(shown, it)
		}
	}
	out := cmd.OutOrStdout()
	if asJSON {
		b, _ := json.MarshalIndent(shown, "", "  ")
		fmt.Fprintln(out, string(b))
		return nil
	}
	printItems(out, shown)
	printSummary(out, st)
	return nil
}

func printItems(out io.Writer, items []model.Item) {
	for _, it := range items {
		fmt.Fprintf(out, "%-20s %-9s %-22s %s\n", it.ID, it.Kind, it.Date, util.Preview(it.Text, 60))
	}
}

func printSummary(out io.Writer, st session.State) {
	fmt.Fprintf(out, "@%s: %d held (%d original, %d retweet, %d reply), %d on account",
		st.Account.ScreenName, len(st.Items),
		st.Count(model.KindOriginal), st.Count(model.KindRetweet), st.Count(model.KindReply),
		st.TotalCount)
	if st.Cursor != "" {
		fmt.Fprint(out, ", more pages available")
	}
	fmt.Fprintln(out)
}
