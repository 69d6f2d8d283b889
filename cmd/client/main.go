// Command client is a thin CLI for talking to a running ember server.
package main

import (
	"fmt"
	"os"

	"github.com/iamNilotpal/ember/internal/client"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string

	root := &cobra.Command{
		Use:   "client",
		Short: "Talk to a running ember server",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:7777", "server address")

	root.AddCommand(
		newPingCmd(&addr),
		newPutCmd(&addr),
		newGetCmd(&addr),
		newRemoveCmd(&addr),
	)
	return root
}

func newPingCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send a PING and expect PONG",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Ping(); err != nil {
				return err
			}
			fmt.Println("PONG")
			return nil
		},
	}
}

func newPutCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Put([]byte(args[0]), []byte(args[1]))
		},
	}
}

func newGetCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Look up a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()

			value, found, err := c.Get([]byte(args[0]))
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("(not found)")
				return nil
			}
			fmt.Println(string(value))
			return nil
		},
	}
}

func newRemoveCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Remove([]byte(args[0]))
		},
	}
}
