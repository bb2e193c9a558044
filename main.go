package main

import (
	"time"

	"github.com/anoixa/tidypics/cmd"
	"github.com/anoixa/tidypics/config"
	"github.com/rs/zerolog/log"
)

func init() {
	var cstZone = time.FixedZone("CST", 8*3600) // 东八
	time.Local = cstZone
}

func main() {
	log.Info().Str("version", config.Version).Str("commit", config.CommitHash).Msg("tidypics")
	cmd.Execute()
}
