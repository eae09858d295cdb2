package lock

import (
	"fmt"

	"github.com/ValentinKolb/kvorm/cmd/util"
	"github.com/ValentinKolb/kvorm/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcLockMgr     client.RPCLockManager
	acquireTimeout string

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:                "lock",
		Short:              "Perform lock operations",
		PersistentPreRunE:  setupLockClient,
		PersistentPostRunE: closeLockClient,
	}

	acquireCmd = &cobra.Command{
		Use:   "acquire [key]",
		Short: "Acquire a lock",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	releaseCmd = &cobra.Command{
		Use:   "release [key] [ownerID]",
		Short: "Release a previously acquired lock",
		Long:  "Release a lock using the key and owner ID. The owner ID is printed by the acquire command.",
		Args:  cobra.ExactArgs(2),
		RunE:  runRelease,
	}
)

func init() {
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)

	util.SetupRPCClientFlags(LockCommands)

	// default shard of lock operations (the kv commands use 100)
	LockCommands.PersistentFlags().Int("shard", 200, util.WrapString("ID of the shard to connect to"))

	acquireCmd.Flags().StringVar(&acquireTimeout, "lifetime", "30s", "Lock lifetime as duration or seconds (0 for no timeout)")
}

// setupLockClient initializes the lock manager client
func setupLockClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.InitLogging(); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}
	newTransport, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcLockMgr, err = client.NewRPCLockMgr(util.GetShardID(), util.GetClientConfig(), newTransport(), s)
	return err
}

func closeLockClient(_ *cobra.Command, _ []string) error {
	if rpcLockMgr == nil {
		return nil
	}
	return rpcLockMgr.Close()
}

// runAcquire handles the acquire lock command
func runAcquire(_ *cobra.Command, args []string) error {
	lifetime, err := util.ParseDuration(acquireTimeout)
	if err != nil {
		return err
	}

	acquired, ownerID, err := rpcLockMgr.AcquireLock(args[0], lifetime)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}
	if !acquired {
		fmt.Println("acquired=false")
		return nil
	}

	fmt.Printf("acquired=true, ownerId=%s\n", ownerID)
	return nil
}

// runRelease handles the release lock command
func runRelease(_ *cobra.Command, args []string) error {
	released, err := rpcLockMgr.ReleaseLock(args[0], []byte(args[1]))
	if err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Printf("released=%v\n", released)
	return nil
}
