package cmd

import (
	"context"
	"fmt"

	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/database/repo/images"
	"github.com/anoixa/tidypics/database/repo/users"
	"github.com/anoixa/tidypics/internal/di"
	"github.com/anoixa/tidypics/internal/services/quota"
	"github.com/anoixa/tidypics/utils/format"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// quotaCmd 配额管理命令
var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Quota management commands",
	Long:  "Inspect and repair per-user storage usage.",
}

var quotaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show storage usage of a user",
	Run: func(cmd *cobra.Command, args []string) {
		owner, _ := cmd.Flags().GetUint("owner")
		if err := runQuotaShow(owner); err != nil {
			log.Fatal().Err(err).Msg("Quota show failed")
		}
	},
}

var quotaReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute storage usage from stored images",
	Long: `Recompute storage usage from the sizes of stored images.
Without --owner every user is reconciled.`,
	Run: func(cmd *cobra.Command, args []string) {
		owner, _ := cmd.Flags().GetUint("owner")
		if err := runQuotaReconcile(owner); err != nil {
			log.Fatal().Err(err).Msg("Quota reconcile failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(quotaCmd)
	quotaCmd.AddCommand(quotaShowCmd, quotaReconcileCmd)

	quotaShowCmd.Flags().Uint("owner", 0, "User GUID")
	_ = quotaShowCmd.MarkFlagRequired("owner")
	quotaReconcileCmd.Flags().Uint("owner", 0, "User GUID, 0 for all users")
}

func openLedgerContainer() (*di.Container, error) {
	config.InitConfig()
	container := di.NewContainer(config.Get())
	if err := container.InitDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return container, nil
}

func runQuotaShow(owner uint) error {
	container, err := openLedgerContainer()
	if err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	report, err := usageReport(context.Background(), container.GetLedger(),
		images.NewRepository(container.GetDatabaseProvider()), owner)
	if err != nil {
		return err
	}
	fmt.Println(report)
	return nil
}

// usageReport 输出记账用量，与已落盘图片合计不一致时提示执行 reconcile
func usageReport(ctx context.Context, ledger *quota.Ledger, repo *images.Repository, owner uint) (string, error) {
	used, err := ledger.Usage(ctx, owner)
	if err != nil {
		return "", err
	}
	stored, err := repo.StoredSizeByOwner(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("failed to sum stored images: %w", err)
	}

	report := fmt.Sprintf("User %d: %s (%d bytes)", owner, format.HumanReadableSize(used), used)
	if stored != used {
		report += fmt.Sprintf("\nStored images total %s (%d bytes), run `quota reconcile --owner %d` to fix",
			format.HumanReadableSize(stored), stored, owner)
	}
	return report, nil
}

func runQuotaReconcile(owner uint) error {
	container, err := openLedgerContainer()
	if err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	ctx := context.Background()
	owners := []uint{owner}
	if owner == 0 {
		owners, err = users.NewRepository(container.GetDatabaseProvider()).ListIDs(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
	}

	corrected := 0
	for _, id := range owners {
		before, after, err := container.GetLedger().Reconcile(ctx, id)
		if err != nil {
			return err
		}
		if before != after {
			corrected++
			fmt.Printf("User %d: %s -> %s\n", id, format.HumanReadableSize(before), format.HumanReadableSize(after))
		}
	}
	fmt.Printf("Reconciled %d users, %d corrected\n", len(owners), corrected)
	return nil
}
