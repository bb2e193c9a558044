package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/database/repo/images"
	"github.com/anoixa/tidypics/internal/di"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// cleanCmd 清理孤儿记录和临时文件
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean orphan image records and temp files",
	Long: `Clean orphan image records and temp files.
This includes:
  - Delete image records that never received a stored file
  - Clean stale files in the upload temp folder`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		tempOnly, _ := cmd.Flags().GetBool("temp-only")
		dbOnly, _ := cmd.Flags().GetBool("db-only")
		limit, _ := cmd.Flags().GetInt("limit")

		if err := runClean(dryRun, tempOnly, dbOnly, limit); err != nil {
			log.Fatal().Err(err).Msg("Clean failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Bool("dry-run", false, "Only show what would be cleaned, don't actually delete")
	cleanCmd.Flags().Bool("temp-only", false, "Only clean temp files")
	cleanCmd.Flags().Bool("db-only", false, "Only clean orphan image records")
	cleanCmd.Flags().Int("limit", 500, "Maximum number of orphan records handled per run")
}

// cleanStats 清理统计信息
type cleanStats struct {
	orphanRecords    int
	deletedRecords   int
	deletedTempFiles int
	errors           []string
}

// runClean 执行清理
func runClean(dryRun, tempOnly, dbOnly bool, limit int) error {
	config.InitConfig()
	cfg := config.Get()

	stats := &cleanStats{}

	if !tempOnly {
		container := di.NewContainer(cfg)
		if err := container.Init(); err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer func() { _ = container.Close() }()

		if err := cleanOrphanRecords(container, stats, dryRun, limit); err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("clean orphan records failed: %v", err))
		}
	}

	if !dbOnly {
		n, err := cleanOldTempFiles(cfg.StorageTempDir, 24*time.Hour, dryRun)
		stats.deletedTempFiles = n
		if err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("clean temp files failed: %v", err))
		}
	}

	printCleanStats(stats, dryRun)

	if len(stats.errors) > 0 {
		return fmt.Errorf("encountered %d errors during cleanup", len(stats.errors))
	}
	return nil
}

// cleanOrphanRecords 删除超过 orphan_record_max_age 仍未落盘的图片记录
func cleanOrphanRecords(container *di.Container, stats *cleanStats, dryRun bool, limit int) error {
	cfg := container.GetConfig()
	ctx := context.Background()

	maxAge := cfg.OrphanRecordMaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	before := time.Now().Add(-maxAge)

	orphans, err := images.NewRepository(container.GetDatabaseProvider()).ListOrphans(ctx, before, limit)
	if err != nil {
		return fmt.Errorf("failed to list orphan records: %w", err)
	}
	stats.orphanRecords = len(orphans)

	ctrl := container.GetController()
	for _, img := range orphans {
		if dryRun {
			log.Info().Uint("image", img.ID).Str("state", string(img.State)).Time("created_at", img.CreatedAt).
				Msg("[DRY-RUN] Would delete orphan record")
			continue
		}
		if err := ctrl.Delete(ctx, img.ID); err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("image %d: %v", img.ID, err))
			continue
		}
		stats.deletedRecords++
	}
	return nil
}

// cleanOldTempFiles 清理超过 maxAge 的临时文件，返回删除数量
func cleanOldTempFiles(tempDir string, maxAge time.Duration, dryRun bool) (int, error) {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read temp directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(tempDir, entry.Name())
		if dryRun {
			log.Info().Str("file", path).Msg("[DRY-RUN] Would delete temp file")
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Failed to remove old temp file")
			continue
		}
		deleted++
	}
	return deleted, nil
}

// printCleanStats 打印清理统计
func printCleanStats(stats *cleanStats, dryRun bool) {
	fmt.Println()
	fmt.Println("========================================")
	if dryRun {
		fmt.Println("           [DRY RUN MODE]")
	}
	fmt.Println("         Clean Statistics")
	fmt.Println("========================================")
	fmt.Printf("Orphan records found:   %d\n", stats.orphanRecords)
	fmt.Printf("Orphan records deleted: %d\n", stats.deletedRecords)
	fmt.Printf("Temp files deleted:     %d\n", stats.deletedTempFiles)
	fmt.Println("========================================")

	if len(stats.errors) > 0 {
		fmt.Println("\nErrors encountered:")
		for _, err := range stats.errors {
			fmt.Printf("  - %s\n", err)
		}
	}
}
