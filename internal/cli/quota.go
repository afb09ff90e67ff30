package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"xpurge/internal/cmdlog"
	"xpurge/internal/model"
	"xpurge/internal/quota"
	"xpurge/internal/store/sqlitedb"
)

func init() {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show today's deletion allowance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("quota", func() error { return runQuota(cmd) })
		},
	}
	RootCmd.AddCommand(cmd)

	tier := &cobra.Command{
		Use:   "tier <free|pro|lifetime>",
		Short: "Set the subscription tier of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("tier", func() error { return runTier(cmd, args[0]) })
		},
	}
	tier.Flags().Bool("inactive", false, "Mark the subscription inactive")
	tier.Flags().String("email", "", "Apply to the profile registered with this email instead of --user")
	RootCmd.AddCommand(tier)
}

func runQuota(cmd *cobra.Command) error {
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	p, err := db.EnsureProfile(cmd.Context(), userID, "")
	if err != nil {
		return err
	}
	today := quota.Today(time.Now())
	a := quota.Check(p, today, cfg.Quota.DailyLimit)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "profile:  %s\n", p.UserID)
	fmt.Fprintf(out, "tier:     %s (%s)\n", p.Tier, p.Status)
	fmt.Fprintf(out, "deleted:  %d today\n", quota.EffectiveUsed(p.LastDeletionDate, p.DeletedToday, today))
	if a.Unlimited {
		fmt.Fprintln(out, "remaining: unlimited")
	} else {
		fmt.Fprintf(out, "remaining: %d of %d\n", a.Remaining, cfg.Quota.DailyLimit)
		if !a.Allowed {
			fmt.Fprintf(out, "resets:   %s\n", quota.NextReset(time.Now()).Local().Format("Jan 2 15:04 MST"))
		}
	}
	return nil
}

func runTier(cmd *cobra.Command, arg string) error {
	tier := model.Tier(arg)
	switch tier {
	case model.TierFree, model.TierPro, model.TierLifetime:
	default:
		return fmt.Errorf("unknown tier %q", arg)
	}
	inactive, _ := cmd.Flags().GetBool("inactive")
	email, _ := cmd.Flags().GetString("email")
	status := model.StatusActive
	if inactive || tier == model.TierFree {
		status = model.StatusInactive
	}
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	ctx := cmd.Context()
	if email != "" {
		err = db.SetSubscriptionByEmail(ctx, email, tier, status, "")
	} else {
		if _, err = db.EnsureProfile(ctx, userID, ""); err != nil {
			return err
		}
		err = db.SetSubscription(ctx, userID, tier, status, "")
	}
	if errors.Is(err, sqlitedb.ErrNotFound) {
		return fmt.Errorf("no profile for %s", email)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "tier set to %s (%s)\n", tier, status)
	return nil
}
