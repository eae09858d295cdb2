package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/kvorm/cmd/util"
	"github.com/ValentinKolb/kvorm/rpc/common"
	"github.com/ValentinKolb/kvorm/rpc/serializer"
	"github.com/ValentinKolb/kvorm/rpc/server"
	"github.com/ValentinKolb/kvorm/rpc/transport/http"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the kvorm server",
		Long:    `Start the kvorm server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is KVORM_<flag> (e.g. KVORM_SNAPSHOT_DIR=/var/lib/kvorm)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "shards"
	ServeCmd.PersistentFlags().String(key, "100=lstore,200=lockmgr", cmdUtil.WrapString("Comma-separated list of shards to serve. Format: ID=TYPE where TYPE is one of: lstore, lockmgr"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds"))

	key = "gc-interval"
	ServeCmd.PersistentFlags().Int64(key, 1000, cmdUtil.WrapString("Interval in milliseconds at which expired and deleted entries are collected"))

	key = "snapshot-dir"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Directory for shard snapshots. Snapshots are restored on start and written on shutdown. Empty disables snapshots"))
}

// parseShards parses the ID=TYPE list of the shards flag
func parseShards(value string) ([]common.ServerShard, error) {
	var shards []common.ServerShard
	for _, shardConfig := range strings.Split(value, ",") {
		parts := strings.Split(shardConfig, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid shard format: %s (expected ID=TYPE)", shardConfig)
		}

		shardID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid shard ID %s: %v", parts[0], err)
		}

		var shardType common.ServerShardType
		switch strings.TrimSpace(parts[1]) {
		case "lstore":
			shardType = common.ShardTypeLocalIStore
		case "lockmgr", "lockmgr(lstore)":
			shardType = common.ShardTypeLocalILockManager
		default:
			return nil, fmt.Errorf("invalid shard type: %s (expected one of: lstore, lockmgr)", parts[1])
		}

		shards = append(shards, common.ServerShard{ShardID: shardID, Type: shardType})
	}
	return shards, nil
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := cmdUtil.InitLogging(); err != nil {
		return err
	}

	shards, err := parseShards(viper.GetString("shards"))
	if err != nil {
		return err
	}
	serveCmdConfig.Shards = shards
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.GCIntervalMillisecond = viper.GetInt64("gc-interval")
	serveCmdConfig.SnapshotDir = viper.GetString("snapshot-dir")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// run starts the server and shuts it down gracefully on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := serializer.New(viper.GetString("serializer"))
	if err != nil {
		return err
	}
	if t := viper.GetString("transport"); t != "http" {
		return fmt.Errorf("invalid transport %s (only http is supported)", t)
	}

	serv := server.NewRPCServer(*serveCmdConfig, http.NewHttpServerTransport(), s)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- serv.Serve() }()

	select {
	case err = <-done:
		// the server failed before a signal arrived, stores may still hold data
		if shutdownErr := serv.Shutdown(context.Background()); err == nil {
			err = shutdownErr
		}
		return err
	case <-ctx.Done():
	}

	cmdUtil.Logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := serv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-done
}
