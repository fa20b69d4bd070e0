package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
	"lucidexport/pkg/logger"
)

func main() {
	logger.Version = version

	// maxprocs.Set only fails on an invalid GOMAXPROCS; runtime defaults apply then
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.GetLogger().Debug(fmt.Sprintf(format, args...))
	}))

	os.Exit(Execute())
}
