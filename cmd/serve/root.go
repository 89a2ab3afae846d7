package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/christophercampbell/skunkr/cmd/util"
	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/db/engines"
	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/rpc/common"
	"github.com/christophercampbell/skunkr/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the skunkr server",
		Long:    `Start the skunkr server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is SKUNKR_<flag> (e.g. SKUNKR_DATA_DIR=/var/lib/skunkr)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "engine"
	ServeCmd.PersistentFlags().String(key, string(db.ImplBolt), cmdUtil.WrapString(fmt.Sprintf("The storage engine (%v)", db.Implementations)))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("The directory holding the database. The engine keeps its files in <data-dir>/<engine>"))

	key = "max-tables"
	ServeCmd.PersistentFlags().Int(key, db.DefaultMaxTables, cmdUtil.WrapString("The maximum number of tables in the database"))

	key = "no-sync"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Skip syncing writes to disk. Faster, but the last writes may be lost on a crash"))

	key = "scan-buffer"
	ServeCmd.PersistentFlags().Int(key, scan.DefaultBufferSize, cmdUtil.WrapString("How many scanned items may wait for the connection before the scan blocks"))

	key = "scan-timeout"
	ServeCmd.PersistentFlags().Duration(key, scan.DefaultSendTimeout, cmdUtil.WrapString("How long a blocked scan waits for buffer space before it is aborted"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Write timeout in seconds for responses, 0 disables it"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:7070", cmdUtil.WrapString("The address on which the API will listen (e.g. 0.0.0.0:7070, /tmp/skunkr.sock, ...)"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("How many requests of one connection are handled concurrently (tcp and unix)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("If set, prometheus metrics are served on http://<metrics-endpoint>/metrics"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "log-color"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Colorize the log level"))

	cmdUtil.SetupSocketFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// validate the engine early, before anything is created on disk
	impl, err := engines.ParseImplementation(viper.GetString("engine"))
	if err != nil {
		return err
	}

	serveCmdConfig.Engine = string(impl)
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.MaxTables = viper.GetInt("max-tables")
	serveCmdConfig.NoSync = viper.GetBool("no-sync")
	serveCmdConfig.ScanBufferSize = viper.GetInt("scan-buffer")
	serveCmdConfig.ScanTimeout = viper.GetDuration("scan-timeout")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Transport = cmdUtil.GetServerTransportConfig()
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.LogColor = viper.GetBool("log-color")

	if _, err := common.ParseLogLevel(serveCmdConfig.LogLevel); err != nil {
		return err
	}
	if impl != db.ImplMemory && serveCmdConfig.DataDir == "" {
		return fmt.Errorf("engine %s requires a data directory", impl)
	}

	return nil
}

// run starts the skunkr server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {

	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	fmt.Print(serveCmdConfig.String())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	errCh := make(chan error, 1)
	go func() {
		errCh <- serv.Serve()
	}()

	select {
	case err := <-errCh:
		// the server stopped on its own, release whatever was opened
		return firstError(err, serv.Close())
	case sig := <-signals:
		fmt.Printf("\nreceived %s, shutting down\n", sig)
		closeErr := serv.Close()
		return firstError(<-errCh, closeErr)
	}
}

func firstError(serveErr, closeErr error) error {
	if serveErr != nil {
		return serveErr
	}
	return closeErr
}
