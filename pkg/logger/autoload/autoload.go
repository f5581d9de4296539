// Package autoload initializes the global logger from LOG_* environment
// variables as a side effect of being imported.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/tgtg-tools/bagbot/pkg/logger"
)

func init() {
	var conf logx.Config
	if err := envconfig.Process("log", &conf); err != nil {
		logx.Init()
		return
	}
	logx.Init(conf)
}
