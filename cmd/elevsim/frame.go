package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/elevsim/can"
)

func newFrameCmd() *cobra.Command {
	var id, data string

	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Encode one CAN frame.",
		Long: "`frame --id 0x1F000000 --data 0102` prints the wire size, " +
			"the stuff bits and the CRC of a frame. The first data byte " +
			"holds the payload bits 0 to 7.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			frameID, err := strconv.ParseUint(id, 0, 32)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", id, err)
			}

			payload, err := hex.DecodeString(
				strings.TrimPrefix(strings.ToLower(data), "0x"))
			if err != nil {
				return fmt.Errorf("invalid data %q: %w", data, err)
			}

			frame, err := can.Encode(uint32(frameID), payload)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), frame)

			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "29-bit message id")
	cmd.Flags().StringVar(&data, "data", "", "payload bytes in hex")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
