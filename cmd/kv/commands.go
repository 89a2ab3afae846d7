package kv

import (
	"encoding/json"
	"fmt"

	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if ok, err := rpcStore.Set(table(), []byte(key), []byte(value)); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("set was not applied")
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if resp, ok, err := rpcStore.Get(table(), []byte(key)); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			}
			return nil
		},
	}
	scanCmd = &cobra.Command{
		Use:   "scan [from]",
		Short: "Lists all pairs with a key >= from in ascending key order",
		Long:  "Lists all pairs with a key >= from in ascending key order. Without from the whole table is listed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var from []byte
			if len(args) == 1 {
				from = []byte(args[0])
			}
			limit, _ := cmd.Flags().GetInt("limit")

			source := scan.NewHandoff[scan.Request]()
			source.Send(scan.Request{Table: table(), From: from})
			sink := scan.NewSink(0, 0)
			rpcStore.Scan(source, sink)

			// keep draining after the limit so the scan can finish
			printed := 0
			for kv := range sink.Items() {
				if limit > 0 && printed >= limit {
					continue
				}
				fmt.Printf("%s=%s\n", kv.Key, kv.Value)
				printed++
			}

			res := sink.Result()
			switch res.Status {
			case scan.StatusCompleted:
				fmt.Printf("(%d pairs)\n", res.Items)
				return nil
			case scan.StatusTableMissing:
				fmt.Printf("table %q does not exist\n", table())
				return nil
			default:
				return fmt.Errorf("scan %s after %d pairs: %v", res.Status, res.Items, res.Err)
			}
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints information about the database of the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcStore.GetDBInfo()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)

func init() {
	scanCmd.Flags().Int("limit", 0, "Print at most this many pairs, 0 prints all")
}
