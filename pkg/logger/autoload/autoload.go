// Package autoload configures the global logger from the LOG_* environment
// on import.
package autoload

import (
	configx "github.com/prachk/cardvoice-resolution-agent/pkg/config"
	logx "github.com/prachk/cardvoice-resolution-agent/pkg/logger"
)

func init() {
	cfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*cfg)
}
