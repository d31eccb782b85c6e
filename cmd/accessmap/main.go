package main

import (
	"os"

	"github.com/dw-outreach/outreach/backend/internal/util"
)

func main() {
	util.LoadEnv()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
