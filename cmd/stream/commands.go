package stream

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func parseTag(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid tag %q: %w", s, err)
	}
	return uint16(v), nil
}

var (
	writeCmd = &cobra.Command{
		Use:   "write [tag]",
		Short: "Streams stdin into a tag's value in chunks, aborting the session on any error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := parseTag(args[0])
			if err != nil {
				return err
			}

			// The engine's stream session declares its total length up
			// front (§4.6), so the full payload has to be buffered before
			// WriteBegin can be issued.
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}

			h, err := rpcStore.WriteBegin(tag, uint32(len(data)))
			if err != nil {
				return err
			}

			chunkSize := viper.GetInt("chunk-size")
			for off := 0; off < len(data); off += chunkSize {
				end := off + chunkSize
				if end > len(data) {
					end = len(data)
				}
				if err := rpcStore.WriteChunk(h, data[off:end]); err != nil {
					_ = rpcStore.WriteAbort(h)
					return err
				}
			}

			if err := rpcStore.WriteEnd(h); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "streamed %d bytes to tag %s\n", len(data), args[0])
			return nil
		},
	}
	readCmd = &cobra.Command{
		Use:   "read [tag]",
		Short: "Streams a tag's value to stdout in chunks, aborting the session on any error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := parseTag(args[0])
			if err != nil {
				return err
			}

			h, totalLen, err := rpcStore.ReadBegin(tag)
			if err != nil {
				return err
			}

			chunkSize := viper.GetInt("chunk-size")
			out := bufio.NewWriter(os.Stdout)

			var read uint32
			buf := make([]byte, chunkSize)
			for read < totalLen {
				n, err := rpcStore.ReadChunk(h, buf)
				if err != nil {
					_ = rpcStore.ReadAbort(h)
					return err
				}
				if n == 0 {
					break
				}
				if _, err := out.Write(buf[:n]); err != nil {
					_ = rpcStore.ReadAbort(h)
					return fmt.Errorf("failed to write stdout: %w", err)
				}
				read += uint32(n)
			}

			if err := out.Flush(); err != nil {
				return fmt.Errorf("failed to flush stdout: %w", err)
			}

			if err := rpcStore.ReadEnd(h); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "streamed %d bytes from tag %s\n", read, args[0])
			return nil
		},
	}
)
