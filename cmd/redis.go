package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"asterplayer/db"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis track store",
	Long:  `Connect to Redis and run a read/write and pub/sub round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Redis: %s, DB: %d\n", cfg.RedisAddr(), cfg.RedisDB)

		client, err := db.ConnectRedis(cfg)
		if err != nil {
			client.Close()
			return err
		}
		defer db.CloseRedis()
		fmt.Println("connected")

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if err := db.TestRedis(ctx); err != nil {
			return fmt.Errorf("redis round trip failed: %w", err)
		}

		n, err := client.HLen(ctx, cfg.TrackCollection).Result()
		if err != nil {
			return err
		}
		fmt.Printf("round trip ok, %d tracks in %q\n", n, cfg.TrackCollection)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
