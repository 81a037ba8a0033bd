package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kadr/internal/backup"
	"github.com/alfredjeanlab/kadr/internal/config"
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	Short:   "Export catalogs and personnel as JSONL once",
	GroupID: "system",
	Long: `Reads every catalog row and personnel record from KADR_DATABASE_URL and
writes one JSONL snapshot. With --out the snapshot goes to a local file; with
--s3 it goes to the bucket configured by the KADR_BACKUP_S3_* variables. Both
may be given.`,
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		toS3, _ := cmd.Flags().GetBool("s3")
		if out == "" && !toS3 {
			return fmt.Errorf("nothing to do: pass --out <file> and/or --s3")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := context.Background()

		var dests []backup.Destination
		if out != "" {
			dests = append(dests, backup.NewFileDestination(out))
		}
		if toS3 {
			dest, err := backup.NewS3Destination(ctx, cfg.BackupS3Bucket, cfg.BackupS3Key, cfg.BackupS3Region, cfg.BackupS3Endpoint)
			if err != nil {
				return err
			}
			dests = append(dests, dest)
		}

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		publisher, err := newPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer publisher.Close()

		stats, err := backup.NewScheduler(store, dests, 0, publisher, logger).RunOnce(ctx)
		if err != nil {
			return err
		}
		for _, d := range dests {
			fmt.Fprintf(os.Stdout, "wrote %s (%d catalog rows, %d personnel)\n", d.Location(), stats.CatalogRows, stats.PersonnelRows)
		}
		return nil
	},
}

func init() {
	backupCmd.Flags().String("out", "", "write the snapshot to this file")
	backupCmd.Flags().Bool("s3", false, "upload the snapshot to the configured S3 bucket")
}
