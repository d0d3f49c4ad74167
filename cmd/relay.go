package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobmate/swipe-service/internal/scheduler"
	"jobmate/swipe-service/internal/store"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish pending match events once and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx, true)
		if err != nil {
			return err
		}
		defer rt.close()

		catalog := store.NewCatalog(rt.pool)
		publisher := store.NewPublisher(rt.rdb, rt.cfg.MatchEventChannel)
		relay := scheduler.New(catalog, publisher, rt.cfg.RelaySpec(), rt.cfg.RelayBatchSize, rt.log)

		n, err := relay.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("relay: published %d before failing: %w", n, err)
		}
		rt.log.Info("relay pass complete", zap.Int("published", n))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx, false)
		if err != nil {
			return err
		}
		defer rt.close()

		if err := store.NewCatalog(rt.pool).Migrate(ctx); err != nil {
			return err
		}
		rt.log.Info("schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(relayCmd, migrateCmd)
}
