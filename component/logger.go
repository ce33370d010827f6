package component

import (
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/kadirpekel/crewcore/config"
)

// newLogger builds the module-wide hclog.Logger from config.LoggingConfig,
// grounded on the teacher's hclog.New(&hclog.LoggerOptions{...}) call sites
// (plugins/grpc/loader.go), generalized to read level/format from config
// instead of hardcoding them.
func newLogger(cfg config.LoggingConfig) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       "crewcore",
		Level:      hclog.LevelFromString(cfg.Level),
		JSONFormat: cfg.JSON,
		Output:     os.Stderr,
	})
}
