// File path: cmd/codelens/main.go
package main

import (
	"os"

	"github.com/nicodishanthj/codelens/internal/common"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		common.Logger().Error("codelens: command failed", "error", err)
		os.Exit(1)
	}
}
