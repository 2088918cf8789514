// Command elevsim runs the CAN bus of the elevator testbed on the
// discrete-event kernel.
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Warn("cannot load .env")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
