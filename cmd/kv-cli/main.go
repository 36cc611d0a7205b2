package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/heysubinoy/keyvaluestore/pkg/client"
	"github.com/heysubinoy/keyvaluestore/pkg/kv"
)

const defaultAddr = "http://127.0.0.1:8080"

type cliOptions struct {
	addr    string
	token   string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "kv-cli",
		Short:         "Read and write values on a keyvaluestore server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", envOr("KVS_ADDR", defaultAddr), "server address (env KVS_ADDR)")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("KVS_TOKEN"), "bearer token (env KVS_TOKEN)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")

	root.AddCommand(newGetCmd(opts), newSetCmd(opts))
	return root
}

func newGetCmd(opts *cliOptions) *cobra.Command {
	var showModified bool
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			entry, err := c.Get(ctx, args[0])
			if errors.Is(err, kv.ErrNotFound) {
				return fmt.Errorf("key '%s' not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("get failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if showModified && entry.HasModifiedAt() {
				fmt.Fprintf(out, "# last modified %s\n", entry.ModifiedAt.UTC().Format(http.TimeFormat))
			}
			fmt.Fprintln(out, entry.Value)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showModified, "modified", false, "also print the Last-Modified time")
	return cmd
}

func newSetCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Store value under key; reads stdin when value is omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) == 2 {
				value = args[1]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				value = string(data)
			}

			c, ctx, cancel, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			if err := c.Put(ctx, args[0], value); err != nil {
				return fmt.Errorf("set failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set '%s'\n", args[0])
			return nil
		},
	}
}

func (o *cliOptions) connect(parent context.Context) (*client.Client, context.Context, context.CancelFunc, error) {
	c, err := client.New(o.addr, o.token, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid server address: %w", err)
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, o.timeout)
	return c, ctx, cancel, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
