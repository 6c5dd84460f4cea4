package cmd

import (
	"strings"

	"github.com/achilleasa/scanline/log"
	"github.com/urfave/cli"
)

var logger = log.New("scanline")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}

	// Per module overrides use the module=level syntax.
	for _, override := range ctx.GlobalStringSlice("log-module") {
		module, levelName, ok := strings.Cut(override, "=")
		level, valid := log.ParseLevel(levelName)
		if !ok || !valid {
			logger.Warningf("ignoring invalid log level override %q", override)
			continue
		}
		log.SetModuleLevel(module, level)
	}
}
